package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/vidyalay/vidyalay-api/internal/models"
	"github.com/vidyalay/vidyalay-api/pkg/config"
	"github.com/vidyalay/vidyalay-api/pkg/jobs"
	"github.com/vidyalay/vidyalay-api/pkg/sms"
)

const jobTypeParentAlert = "parent_alert"

// parentAlert carries everything a worker needs to deliver one SMS.
type parentAlert struct {
	Contact     string
	StudentName string
	Status      models.AttendanceStatus
}

// NotificationService fans out per-student parent notifications on a
// background worker queue. Delivery is best effort: enqueue and send
// failures are logged and counted, never surfaced to the marking call.
type NotificationService struct {
	sender      sms.Sender
	queue       *jobs.Queue
	countryCode string
	logger      *zap.Logger
	metrics     *MetricsService
}

// NewNotificationService constructs the service and its worker queue.
func NewNotificationService(sender sms.Sender, cfg config.NotificationsConfig, countryCode string, metrics *MetricsService, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{
		sender:      sender,
		countryCode: countryCode,
		logger:      logger,
		metrics:     metrics,
	}
	s.queue = jobs.NewQueue("parent-notifications", s.deliver, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return s
}

// Start launches the worker pool.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the worker pool.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// NotifyMarked enqueues one notification for a freshly created attendance
// record. A missing parent contact is a silent no-op.
func (s *NotificationService) NotifyMarked(student models.Student, status models.AttendanceStatus) {
	contact := sms.Normalize(student.ParentContact.Contact, s.countryCode)
	if contact == "" {
		return
	}
	job := jobs.Job{
		ID:   fmt.Sprintf("%s:%s", student.ID, status),
		Type: jobTypeParentAlert,
		Payload: parentAlert{
			Contact:     contact,
			StudentName: student.Name,
			Status:      status,
		},
	}
	if err := s.queue.Enqueue(job); err != nil {
		s.metrics.RecordNotification(false)
		s.logger.Warn("failed to enqueue parent notification",
			zap.String("student_id", student.ID), zap.Error(err))
	}
}

func (s *NotificationService) deliver(ctx context.Context, job jobs.Job) error {
	alert, ok := job.Payload.(parentAlert)
	if !ok {
		s.logger.Error("unexpected notification payload", zap.String("job_id", job.ID))
		return nil
	}
	if err := s.sender.Send(ctx, alert.Contact, messageFor(alert)); err != nil {
		s.metrics.RecordNotification(false)
		s.logger.Warn("parent notification failed",
			zap.String("job_id", job.ID), zap.Error(err))
		return err
	}
	s.metrics.RecordNotification(true)
	return nil
}

// messageFor renders the guardian-facing SMS body. Templates match the
// Hindi wording used by the mobile rollout.
func messageFor(alert parentAlert) string {
	if alert.Status == models.AttendanceStatusPresent {
		return fmt.Sprintf("प्रिय अभिभावक, आपका बच्चा, %s आज स्कूल में है।", alert.StudentName)
	}
	return fmt.Sprintf(`प्रिय अभिभावक,

हमें सूचित करना पड़ रहा है कि आज आपका बच्चा %s स्कूल में उपस्थित नहीं है। कृपया सुनिश्चित करें कि वे स्कूल आएं और अपनी पढ़ाई पर ध्यान दें, क्योंकि उनका भविष्य इसी पर निर्भर करता है।

धन्यवाद!`, alert.StudentName)
}
