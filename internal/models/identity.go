package models

// Identity is the authenticated caller. There is no user-account entity:
// whoever holds a valid credential for an email is that email.
type Identity struct {
	Email string `json:"email"`
}

// IssueRequest is the JSON body for POST /jwt.
type IssueRequest struct {
	Email string `json:"email"`
}
