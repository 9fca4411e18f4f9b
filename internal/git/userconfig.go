package git

import (
	"fmt"
	"os"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// UserInfo is the identity used to author commits.
type UserInfo struct {
	Name  string
	Email string
	// Source is "env", "local" or "global".
	Source string
}

// DetectUser resolves the author identity with git's own precedence:
// environment variables, then the repository config, then the global config.
func (c *Client) DetectUser(repo *gogit.Repository) (UserInfo, error) {
	getenv := c.getenv
	if getenv == nil {
		getenv = os.Getenv
	}

	if name := getenv("GIT_AUTHOR_NAME"); name != "" {
		if email := getenv("GIT_AUTHOR_EMAIL"); email != "" {
			return UserInfo{Name: name, Email: email, Source: "env"}, nil
		}
	}

	local, err := repo.Config()
	if err != nil {
		return UserInfo{}, fmt.Errorf("read repo config: %w", err)
	}
	if local.User.Name != "" && local.User.Email != "" {
		return UserInfo{Name: local.User.Name, Email: local.User.Email, Source: "local"}, nil
	}

	global, err := repo.ConfigScoped(config.GlobalScope)
	if err != nil {
		return UserInfo{}, fmt.Errorf("read global config: %w", err)
	}
	info := UserInfo{Name: global.User.Name, Email: global.User.Email, Source: "global"}

	// A partially configured repository still wins field by field.
	if local.User.Name != "" {
		info.Name = local.User.Name
	}
	if local.User.Email != "" {
		info.Email = local.User.Email
	}

	if info.Name == "" || info.Email == "" {
		return UserInfo{}, fmt.Errorf("%w: set user.name and user.email with git config", ErrIdentityNotFound)
	}
	return info, nil
}

func (c *Client) signature(repo *gogit.Repository) (*object.Signature, error) {
	user, err := c.DetectUser(repo)
	if err != nil {
		return nil, err
	}
	return &object.Signature{Name: user.Name, Email: user.Email, When: time.Now()}, nil
}
