package domain

// Account is an email account as listed by the vendor.
type Account struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

// Tag is a tag as listed by the vendor. Names are not guaranteed unique.
type Tag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
