package dto

// ClientDashboard summarises a client's tasks and inbox.
type ClientDashboard struct {
	OpenTasks       int64                 `json:"open_tasks"`
	AssignedTasks   int64                 `json:"assigned_tasks"`
	InProgressTasks int64                 `json:"in_progress_tasks"`
	CompletedTasks  int64                 `json:"completed_tasks"`
	CancelledTasks  int64                 `json:"cancelled_tasks"`
	Tasks           []ClientDashboardTask `json:"tasks"`
	UnreadMessages  int64                 `json:"unread_messages"`
}

// ClientDashboardTask is one of the client's tasks with its application count.
type ClientDashboardTask struct {
	Task         TaskResponse `json:"task"`
	Applications int64        `json:"applications"`
}

// TaskerDashboard summarises a tasker's assignments and earnings.
type TaskerDashboard struct {
	AssignedTasks  []TaskResponse `json:"assigned_tasks"`
	TotalEarnings  float64        `json:"total_earnings"`
	MonthEarnings  float64        `json:"month_earnings"`
	AverageRating  float64        `json:"average_rating"`
	ReviewCount    int64          `json:"review_count"`
	UnreadMessages int64          `json:"unread_messages"`
}

// AdminDashboard summarises platform-wide totals.
type AdminDashboard struct {
	TotalUsers   int64          `json:"total_users"`
	TotalClients int64          `json:"total_clients"`
	TotalTaskers int64          `json:"total_taskers"`
	TotalTasks   int64          `json:"total_tasks"`
	ActiveTasks  int64          `json:"active_tasks"`
	RecentUsers  []UserResponse `json:"recent_users"`
	RecentTasks  []TaskResponse `json:"recent_tasks"`
}
