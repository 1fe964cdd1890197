package transcription

import (
	"context"
	"time"
)

func (o *Orchestrator) SetSleep(f func(context.Context, time.Duration) error) { o.sleep = f }
