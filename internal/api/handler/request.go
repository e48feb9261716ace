package handler

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/notifyhub/lms-notify/internal/domain"
)

// NewValidator returns a validator that reports fields by their JSON names.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type notificationRequest struct {
	UserID  string         `json:"user_id" validate:"required,max=64"`
	Title   string         `json:"title" validate:"required,max=255"`
	Message string         `json:"message" validate:"required,max=4096"`
	Type    string         `json:"type" validate:"omitempty,max=32"`
	Channel string         `json:"channel" validate:"required,oneof=in_app email push sms all"`
	Data    map[string]any `json:"data"`
}

func (r notificationRequest) toDomain() domain.NotificationRequest {
	category := domain.Category(r.Type)
	if category == "" {
		category = domain.CategoryInfo
	}
	return domain.NotificationRequest{
		RecipientID: r.UserID,
		Title:       r.Title,
		Body:        r.Message,
		Category:    category,
		Channel:     domain.ChannelSelector(r.Channel),
		Payload:     r.Data,
	}
}

// batchRequest leaves the size limits to the service so an oversized batch
// gets the same error as any other caller.
type batchRequest struct {
	Notifications []notificationRequest `json:"notifications" validate:"dive"`
}

func (b batchRequest) toDomain() []domain.NotificationRequest {
	out := make([]domain.NotificationRequest, len(b.Notifications))
	for i, n := range b.Notifications {
		out[i] = n.toDomain()
	}
	return out
}
