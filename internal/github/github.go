// Package github resolves "github:owner/repo[#ref]" dependency
// descriptors to a concrete raw-content base URL, defaulting to the
// repository's default branch when no ref is given.
package github

import (
	"context"
	"fmt"

	gogithub "github.com/google/go-github/v65/github"
	"golang.org/x/oauth2"

	"github.com/glen-84/typings/internal/typerrors"
)

// rawContentBase is raw.githubusercontent.com, the canonical source for
// file contents at a given ref (as opposed to the rendered HTML API).
const rawContentBase = "https://raw.githubusercontent.com"

// Resolver resolves github: dependency descriptors against the GitHub
// API, caching nothing itself — the unified fetcher's own cache covers
// the raw-content requests this produces a base URL for.
type Resolver struct {
	client *gogithub.Client
}

// New creates a Resolver. If token is non-empty, requests are
// authenticated via an oauth2.StaticTokenSource, raising the rate limit
// and permitting access to private repositories.
func New(token string) *Resolver {
	if token == "" {
		return &Resolver{client: gogithub.NewClient(nil)}
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	httpClient := oauth2.NewClient(context.Background(), ts)
	return &Resolver{client: gogithub.NewClient(httpClient)}
}

// ResolveBase returns the raw-content base URL for owner/repo at ref. If
// ref is empty, the repository's default branch is looked up via the
// GitHub API.
func (r *Resolver) ResolveBase(ctx context.Context, owner, repo, ref string) (string, error) {
	if ref == "" {
		resolved, err := r.defaultBranch(ctx, owner, repo)
		if err != nil {
			return "", err
		}
		ref = resolved
	}
	return fmt.Sprintf("%s/%s/%s/%s/", rawContentBase, owner, repo, ref), nil
}

func (r *Resolver) defaultBranch(ctx context.Context, owner, repo string) (string, error) {
	repository, _, err := r.client.Repositories.Get(ctx, owner, repo)
	if err != nil {
		return "", typerrors.E(typerrors.KindNetworkError,
			fmt.Sprintf("looking up default branch for %s/%s", owner, repo), err)
	}
	branch := repository.GetDefaultBranch()
	if branch == "" {
		branch = "main"
	}
	return branch, nil
}
