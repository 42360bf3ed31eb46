package jobqueue

// QueueNotifier enqueues transactional emails instead of sending them inline.
// It satisfies the reconciliation service's Notifier interface.
type QueueNotifier struct {
	queue *Queue
}

func NewQueueNotifier(queue *Queue) *QueueNotifier {
	return &QueueNotifier{queue: queue}
}

func (n *QueueNotifier) EnqueueEmail(to, subject, body string) error {
	_, err := n.queue.EnqueueJob(JobTypeSendEmail, SendEmailJobPayload{
		To:      to,
		Subject: subject,
		Body:    body,
	}.ToMap())
	return err
}
