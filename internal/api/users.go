package api

import "context"

// Me returns the profile of the token's owner. It doubles as a cheap
// token check.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var u User
	if err := c.get(ctx, "/users/me", &u); err != nil {
		return nil, err
	}
	return &u, nil
}
