package model

type Customer struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Phone  string `json:"phone"`
	Email  string `json:"email"`
	Status string `json:"status"`
}

type Slider struct {
	ID       int64  `json:"id"`
	Image    string `json:"image"`
	Caption  string `json:"caption"`
	IsActive bool   `json:"is_active"`
	Order    int    `json:"order"`
}

type TermsDocument struct {
	ID      int64  `json:"id"`
	Content string `json:"content"`
}
