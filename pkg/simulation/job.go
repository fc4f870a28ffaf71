package simulation

import "math"

// Job is one unit of work. ProcessingTime is the remaining service
// requirement and shrinks while the job is at the head of a queue.
type Job struct {
	StartTime      float64
	EndTime        float64
	ProcessingTime float64
	RequiredMIPS   float64
	Finished       bool
}

func newJob(startTime, processingTime, mips float64) *Job {
	return &Job{
		StartTime:      startTime,
		EndTime:        math.Inf(1),
		ProcessingTime: processingTime,
		RequiredMIPS:   mips,
	}
}

// ResponseTime is the time between arrival and departure. It is +Inf for a
// job still in a queue.
func (j *Job) ResponseTime() float64 {
	return j.EndTime - j.StartTime
}

func (j *Job) finish(endTime float64) {
	j.EndTime = endTime
	j.Finished = true
}
