package stats

import (
	"campusblog/pkg/blog"
	"campusblog/pkg/user"
)

// Job asks for one counter of one user to be recomputed.
type Job struct {
	UserId string    `json:"userId"`
	Type   blog.Type `json:"blogType"`
}

// Counter is the users column the job overwrites. Articles count as posts,
// every other type as complaints.
func (j Job) Counter() user.Counter {
	if j.Type == blog.TypeArticle {
		return user.CounterPosts
	}
	return user.CounterComplaints
}
