package transcribe

import "fmt"

// JobError reports a transcription job that reached FAILED status. Reason
// is the failure message returned by the service.
type JobError struct {
	JobName string
	Reason  string
}

func (e *JobError) Error() string {
	return fmt.Sprintf("transcription job %s failed: %s", e.JobName, e.Reason)
}
