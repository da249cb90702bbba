package genesys

// User is the subset of the platform user schema this app consumes. A user is
// an immutable snapshot once cached; a later fetch of the same ID replaces
// the cached entry wholesale.
type User struct {
	ID         string       `json:"id,omitempty"`
	Name       string       `json:"name,omitempty"`
	Title      string       `json:"title,omitempty"`
	Department string       `json:"department,omitempty"`
	Email      string       `json:"email,omitempty"`
	Username   string       `json:"username,omitempty"`
	State      string       `json:"state,omitempty"`
	Manager    *User        `json:"manager,omitempty"`
	Images     []*UserImage `json:"images,omitempty"`
	Version    int          `json:"version,omitempty"`
	SelfURI    string       `json:"selfUri,omitempty"`
}

type UserImage struct {
	Resolution string `json:"resolution,omitempty"`
	ImageURI   string `json:"imageUri,omitempty"`
}

type UserSearchCriteria struct {
	Type   string   `json:"type"`
	Fields []string `json:"fields,omitempty"`
	Value  string   `json:"value,omitempty"`
}

type UserSearchRequest struct {
	PageSize   int                   `json:"pageSize,omitempty"`
	PageNumber int                   `json:"pageNumber,omitempty"`
	Query      []*UserSearchCriteria `json:"query,omitempty"`
}

type UserSearchResponse struct {
	Total      int     `json:"total"`
	PageCount  int     `json:"pageCount"`
	PageSize   int     `json:"pageSize"`
	PageNumber int     `json:"pageNumber"`
	Results    []*User `json:"results,omitempty"`
}
