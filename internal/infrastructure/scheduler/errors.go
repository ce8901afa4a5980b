package scheduler

import "errors"

var (
	// ErrSchedulerNotRunning is returned when stopping or using a scheduler that was never started
	ErrSchedulerNotRunning = errors.New("scheduler is not running")

	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("invalid scheduler configuration")

	// ErrInvalidReminder is returned for reminders missing a task or channel
	ErrInvalidReminder = errors.New("invalid reminder")

	// ErrNoNotifier is returned when no notifier handles a reminder channel
	ErrNoNotifier = errors.New("no notifier registered for channel")
)
