package scheduler

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const TaskAutoReturnSweep = "tasks.auto_return.sweep"

const TaskRescheduleWatch = "tasks.reschedule.watch"

const TaskRenewalDispatch = "mrr.renewal.dispatch"

type AutoReturnSweepPayload struct {
	RequestedAt time.Time `json:"requestedAt"`
}

type RescheduleWatchPayload struct {
	RequestedAt time.Time `json:"requestedAt"`
}

type RenewalDispatchPayload struct {
	RequestedAt time.Time `json:"requestedAt"`
}

func NewAutoReturnSweepTask(payload AutoReturnSweepPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAutoReturnSweep, data), nil
}

func ParseAutoReturnSweepPayload(task *asynq.Task) (AutoReturnSweepPayload, error) {
	var payload AutoReturnSweepPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return AutoReturnSweepPayload{}, err
	}
	return payload, nil
}

func NewRescheduleWatchTask(payload RescheduleWatchPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRescheduleWatch, data), nil
}

func ParseRescheduleWatchPayload(task *asynq.Task) (RescheduleWatchPayload, error) {
	var payload RescheduleWatchPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return RescheduleWatchPayload{}, err
	}
	return payload, nil
}

func NewRenewalDispatchTask(payload RenewalDispatchPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRenewalDispatch, data), nil
}

func ParseRenewalDispatchPayload(task *asynq.Task) (RenewalDispatchPayload, error) {
	var payload RenewalDispatchPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return RenewalDispatchPayload{}, err
	}
	return payload, nil
}
