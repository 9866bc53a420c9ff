package model

type SetupRequest struct {
	Master   string   `json:"master" binding:"required"`
	Workers  []string `json:"workers" binding:"required,min=1"`
	User     string   `json:"user"`
	Password string   `json:"password"`
}

func (r *SetupRequest) Cluster(defaultUser string) Cluster {
	user := r.User
	if user == "" {
		user = defaultUser
	}
	return Cluster{
		Master:  r.Master,
		Workers: r.Workers,
		User:    user,
	}
}
