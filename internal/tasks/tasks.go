package tasks

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	TypeDailyUsageReset   = "usage:reset:daily"
	TypeMonthlyUsageReset = "usage:reset:monthly"
	TypeAPIKeyExpire      = "apikey:expire:check"
)

type UsageResetPayload struct{}

type APIKeyExpirePayload struct{}

func NewDailyUsageResetTask(opts ...asynq.Option) (*asynq.Task, error) {
	payloadBytes, err := json.Marshal(UsageResetPayload{})
	if err != nil {
		return nil, err
	}
	allOpts := append(opts, asynq.Unique(1*time.Hour))
	return asynq.NewTask(TypeDailyUsageReset, payloadBytes, allOpts...), nil
}

func NewMonthlyUsageResetTask(opts ...asynq.Option) (*asynq.Task, error) {
	payloadBytes, err := json.Marshal(UsageResetPayload{})
	if err != nil {
		return nil, err
	}
	allOpts := append(opts, asynq.Unique(1*time.Hour))
	return asynq.NewTask(TypeMonthlyUsageReset, payloadBytes, allOpts...), nil
}

func NewAPIKeyExpireTask(opts ...asynq.Option) (*asynq.Task, error) {
	payloadBytes, err := json.Marshal(APIKeyExpirePayload{})
	if err != nil {
		return nil, err
	}
	allOpts := append(opts, asynq.Unique(30*time.Minute))
	return asynq.NewTask(TypeAPIKeyExpire, payloadBytes, allOpts...), nil
}
