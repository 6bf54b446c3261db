package models

// UserStorer defines the interface for user persistence
type UserStorer interface {
	Create(user *User) error
	GetByID(id uint) (*User, error)
	GetByUsername(username string) (*User, error)
	GetByEmail(email string) (*User, error)
	GetByIDs(ids []uint) ([]*User, error)
	List(limit, offset int) ([]*User, error)
}

// ProjectStorer defines the interface for project persistence
type ProjectStorer interface {
	Create(project *Project) error
	GetByID(id uint) (*Project, error)
	GetByCode(code string) (*Project, error)
	Update(project *Project) error
	Delete(id uint) error
	ListAccessible(userID uint) ([]*Project, error)
	Count() (int64, error)
	NextAvailableCode(base string) (string, error)
}

// MembershipStorer defines the interface for membership persistence
type MembershipStorer interface {
	GetByUserAndProject(userID, projectID uint) (*Membership, error)
	ListByProject(projectID uint) ([]*Membership, error)
	AddMissing(projectID uint, userIDs []uint, level string) (int, error)
	SetLevel(projectID uint, userIDs []uint, level string) (int, error)
	RemoveByIDs(projectID uint, membershipIDs []uint) (int, error)
	CountByProjectAndLevel(projectID uint, level string) (int64, error)
	AccessLevelFor(user *User, project *Project) (string, bool, error)
}

// SnippetStorer defines the interface for snippet persistence
type SnippetStorer interface {
	Create(snippet *Snippet) error
	GetByID(projectID, id uint) (*Snippet, error)
	Update(snippet *Snippet) error
	Delete(projectID, id uint) error
	ListByProject(projectID uint) ([]*Snippet, error)
	CountByProject(projectID uint) (int64, error)
}
