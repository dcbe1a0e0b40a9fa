package publer

import (
	"context"
	"time"
)

// WorkspacesService accesses the workspace endpoints.
type WorkspacesService struct {
	service
}

// Workspace is a Publer workspace. Optional fields are pointers and stay
// nil when the API omits them.
type Workspace struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	CreatedAt     *time.Time `json:"created_at"`
	UpdatedAt     *time.Time `json:"updated_at"`
	OwnerID       string     `json:"owner_id"`
	MembersCount  *int       `json:"members_count"`
	AccountsCount *int       `json:"accounts_count"`
}

func (w Workspace) validate() error {
	if w.ID == "" {
		return missingField("id")
	}
	if w.Name == "" {
		return missingField("name")
	}
	return nil
}

// List returns all workspaces accessible to the credential.
func (s *WorkspacesService) List(ctx context.Context) ([]Workspace, error) {
	raw, err := s.get(ctx, "/workspaces", nil)
	if err != nil {
		return nil, err
	}
	return decodeRecords[Workspace](records(raw, "workspaces"), false)
}

// Get returns one workspace by id.
func (s *WorkspacesService) Get(ctx context.Context, workspaceID string) (*Workspace, error) {
	raw, err := s.get(ctx, "/workspaces/"+workspaceID, nil)
	if err != nil {
		return nil, err
	}
	w, err := decodeRecord[Workspace](raw)
	if err != nil {
		return nil, err
	}
	return &w, nil
}
