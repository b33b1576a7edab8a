package github

import (
	"context"
	"net/http"
)

// AuthenticatedLogin returns the login the client acts as. App installations
// act as "<slug>[bot]".
func (c *Client) AuthenticatedLogin(ctx context.Context) (string, error) {
	if app, ok := c.auth.(*appAuth); ok {
		slug, err := app.appSlug(ctx)
		if err != nil {
			return "", err
		}
		return slug + "[bot]", nil
	}

	var u user
	if err := c.do(ctx, "get_user", http.MethodGet, "/user", nil, nil, &u); err != nil {
		return "", err
	}
	return u.Login, nil
}
