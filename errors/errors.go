package errors

import "fmt"

var (
	ErrNameTaken           = fmt.Errorf("participant name already taken")
	ErrUnknownParticipant  = fmt.Errorf("participant not registered")
	ErrUnknownSender       = fmt.Errorf("sender not registered")
	ErrCategoryNotPostable = fmt.Errorf("category cannot be posted by a user")
	ErrWorkerPanic         = fmt.Errorf("worker panic")
)
