package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"golang.org/x/sync/errgroup"
)

func (p TagListParams) values() url.Values {
	q := url.Values{}
	if p.Search != "" {
		q.Set("search", p.Search)
	}
	if p.Skip > 0 {
		q.Set("skip", strconv.Itoa(p.Skip))
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	return q
}

func (c *Client) listTags(ctx context.Context, path string, p TagListParams, op string) ([]Tag, error) {
	var tags []Tag
	if err := c.doJSON(ctx, request{method: http.MethodGet, path: path, query: p.values()}, &tags); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return tags, nil
}

func (c *Client) sendTag(ctx context.Context, method, path, route string, in TagInput, op string) (*Tag, error) {
	if in.Name == "" && method == http.MethodPost {
		return nil, fmt.Errorf("%s: tag name is required", op)
	}
	req, err := jsonRequest(method, path, in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.route = route
	var tag Tag
	if err := c.doJSON(ctx, req, &tag); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &tag, nil
}

// ListPersonalTags returns the caller's personal tags.
func (c *Client) ListPersonalTags(ctx context.Context, p TagListParams) ([]Tag, error) {
	return c.listTags(ctx, "/tags/personal", p, "list personal tags")
}

// CreatePersonalTag creates a personal tag.
func (c *Client) CreatePersonalTag(ctx context.Context, in TagInput) (*Tag, error) {
	return c.sendTag(ctx, http.MethodPost, "/tags/personal", "", in, "create personal tag")
}

// UpdatePersonalTag edits a personal tag.
func (c *Client) UpdatePersonalTag(ctx context.Context, id string, in TagInput) (*Tag, error) {
	return c.sendTag(ctx, http.MethodPut, "/tags/personal/"+seg(id), "/tags/personal/{id}", in, "update personal tag")
}

// DeletePersonalTag deletes a personal tag.
func (c *Client) DeletePersonalTag(ctx context.Context, id string) error {
	return c.simple(ctx, http.MethodDelete, "/tags/personal/"+seg(id), "/tags/personal/{id}", nil, "delete personal tag "+id)
}

// ListAvailableTags returns system tags plus the caller's tags.
func (c *Client) ListAvailableTags(ctx context.Context, p TagListParams) ([]Tag, error) {
	return c.listTags(ctx, "/tags/available", p, "list available tags")
}

// ListMyTags returns the tags the caller has adopted.
func (c *Client) ListMyTags(ctx context.Context, p TagListParams) ([]Tag, error) {
	return c.listTags(ctx, "/tags/my", p, "list my tags")
}

// MyTagQuota returns the caller's tag allowance.
func (c *Client) MyTagQuota(ctx context.Context) (*TagQuota, error) {
	var q TagQuota
	if err := c.doJSON(ctx, request{method: http.MethodGet, path: "/tags/quota"}, &q); err != nil {
		return nil, fmt.Errorf("get tag quota: %w", err)
	}
	return &q, nil
}

// AddExistingTag adopts an existing tag.
func (c *Client) AddExistingTag(ctx context.Context, id string) error {
	return c.simple(ctx, http.MethodPost, "/tags/add/"+seg(id), "/tags/add/{id}", nil, "add tag "+id)
}

// RemoveTag drops a tag from the caller's tags.
func (c *Client) RemoveTag(ctx context.Context, id string) error {
	return c.simple(ctx, http.MethodDelete, "/tags/remove/"+seg(id), "/tags/remove/{id}", nil, "remove tag "+id)
}

// CreateAndAddTag creates a tag and adopts it in one call.
func (c *Client) CreateAndAddTag(ctx context.Context, in TagInput) (*Tag, error) {
	return c.sendTag(ctx, http.MethodPost, "/tags/create", "", in, "create tag")
}

// ListSystemTags returns the system tags. Administrators only.
func (c *Client) ListSystemTags(ctx context.Context, p TagListParams) ([]Tag, error) {
	return c.listTags(ctx, "/admin/tags/system", p, "list system tags")
}

// ListUserTags returns tags created by users. Administrators only.
func (c *Client) ListUserTags(ctx context.Context, p TagListParams) ([]Tag, error) {
	return c.listTags(ctx, "/admin/tags/user", p, "list user tags")
}

// ListAllTags fetches system and user tags concurrently and returns system
// tags first.
func (c *Client) ListAllTags(ctx context.Context, p TagListParams) ([]Tag, error) {
	var system, user []Tag
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		system, err = c.ListSystemTags(gctx, p)
		return err
	})
	g.Go(func() error {
		var err error
		user, err = c.ListUserTags(gctx, p)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("list all tags: %w", err)
	}
	return append(system, user...), nil
}

// CreateSystemTag creates a system tag. Administrators only.
func (c *Client) CreateSystemTag(ctx context.Context, in TagInput) (*Tag, error) {
	return c.sendTag(ctx, http.MethodPost, "/admin/tags/system", "", in, "create system tag")
}

// UpdateSystemTag edits a system tag. Administrators only.
func (c *Client) UpdateSystemTag(ctx context.Context, id string, in TagInput) (*Tag, error) {
	return c.sendTag(ctx, http.MethodPut, "/admin/tags/system/"+seg(id), "/admin/tags/system/{id}", in, "update system tag")
}

// DeleteSystemTag deletes a system tag. Administrators only.
func (c *Client) DeleteSystemTag(ctx context.Context, id string) error {
	return c.simple(ctx, http.MethodDelete, "/admin/tags/system/"+seg(id), "/admin/tags/system/{id}", nil, "delete system tag "+id)
}

// UserTagQuota returns a user's tag allowance. Administrators only.
func (c *Client) UserTagQuota(ctx context.Context, userID string) (*TagQuota, error) {
	var q TagQuota
	err := c.doJSON(ctx, request{method: http.MethodGet, path: "/admin/tags/quota/" + seg(userID), route: "/admin/tags/quota/{id}"}, &q)
	if err != nil {
		return nil, fmt.Errorf("get tag quota of %s: %w", userID, err)
	}
	return &q, nil
}

// UpdateUserTagQuota sets a user's tag allowance. Administrators only.
func (c *Client) UpdateUserTagQuota(ctx context.Context, userID string, maxTags int) (*TagQuota, error) {
	req, err := jsonRequest(http.MethodPut, "/admin/tags/quota/"+seg(userID), map[string]int{"max_tags": maxTags})
	if err != nil {
		return nil, err
	}
	req.route = "/admin/tags/quota/{id}"
	var q TagQuota
	if err := c.doJSON(ctx, req, &q); err != nil {
		return nil, fmt.Errorf("update tag quota of %s: %w", userID, err)
	}
	return &q, nil
}
