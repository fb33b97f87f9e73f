package db

// User is an account that can log in. Only admins may publish infos.
type User struct {
	ID        int64
	Email     string
	PassHash  string
	IsAdmin   bool
	CreatedAt int64
}

// Info is a published entry. ImageFilename is empty when no image was
// uploaded; CreatedBy is zero when the creator row no longer exists.
type Info struct {
	ID            int64
	Name          string
	Description   string
	ImageFilename string
	CreatedAt     int64
	CreatedBy     int64
}

// NewInfo carries the fields accepted when inserting an Info.
type NewInfo struct {
	Name          string
	Description   string
	ImageFilename string
	CreatedBy     int64
}

// Session is the server-side half of a login cookie.
type Session struct {
	Token     string
	UserID    int64
	IsAdmin   bool
	CreatedAt int64
	ExpiresAt int64
}
