package queue

import (
	"encoding/json"

	"github.com/swiftmeta/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskNotificationSend 通知投递任务
	TaskNotificationSend = constants.TaskNotificationSend
	// TaskRevokedTokenPurge 清理过期注销记录
	TaskRevokedTokenPurge = constants.TaskRevokedTokenPurge
)

// NotificationPayload 通知任务载荷
type NotificationPayload struct {
	Channel string `json:"channel"`
	To      string `json:"to"`
	Subject string `json:"subject,omitempty"`
	Body    string `json:"body"`
	// Event 业务事件名，仅用于日志
	Event string `json:"event,omitempty"`
}

// NewNotificationTask 创建通知任务
func NewNotificationTask(payload NotificationPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNotificationSend, body), nil
}

// NewRevokedTokenPurgeTask 创建清理任务
func NewRevokedTokenPurgeTask() *asynq.Task {
	return asynq.NewTask(TaskRevokedTokenPurge, nil)
}
