package profile

import (
	"context"

	"github.com/patric-chuzhbe/urlshrtload/internal/models"
	"github.com/patric-chuzhbe/urlshrtload/internal/user"
)

func init() {
	Register(Profile{
		Name:        "fixed",
		Description: "GET one hardcoded short URL",
		Tasks: []Task{
			{
				Name:   "shorten_url",
				Weight: 1,
				Run: func(ctx context.Context, u *user.VirtualUser) error {
					return u.Fetch(ctx, models.ShortPath(models.FixedShortURL))
				},
			},
		},
		Wait: Between(1, 3),
	})
}
