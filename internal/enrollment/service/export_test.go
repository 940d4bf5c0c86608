package service

import "time"

func (e *AdmissionEngine) SetClock(now func() time.Time) { e.now = now }
