package service

import "time"

// Clock supplies timestamps so tests can pin time.
type Clock interface {
	NowMs() int64
}

type systemClock struct{}

func (systemClock) NowMs() int64 {
	return time.Now().UnixMilli()
}
