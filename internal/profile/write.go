package profile

import (
	"context"
	"net/http"

	"github.com/patric-chuzhbe/urlshrtload/internal/models"
	"github.com/patric-chuzhbe/urlshrtload/internal/user"
)

var createWriteURL = Task{
	Name:   "create_url",
	Weight: 1,
	Run: func(ctx context.Context, u *user.VirtualUser) error {
		return u.CreateShortURL(ctx, models.WriteTargetURL, models.WriteUserID)
	},
}

func init() {
	Register(Profile{
		Name:        "write",
		Description: "create short URLs only",
		Tasks:       []Task{createWriteURL},
		Wait:        Constant(0.5),
	})

	Register(Profile{
		Name:        "missing",
		Description: "GET a short URL that does not exist, expecting 404",
		Tasks: []Task{
			{
				Name:   "access_missing_url",
				Weight: 1,
				Run: func(ctx context.Context, u *user.VirtualUser) error {
					return u.FetchExpecting(ctx, models.ShortPath(models.MissingShortURL), http.StatusNotFound)
				},
			},
		},
	})

	Register(Profile{
		Name:        "mixed",
		Description: "80% reads of one short URL, 20% writes",
		Tasks: []Task{
			{
				Name:   "read_url",
				Weight: 4,
				Run: func(ctx context.Context, u *user.VirtualUser) error {
					return u.FetchExpecting(ctx, models.ShortPath(models.MixedShortURL), http.StatusOK)
				},
			},
			createWriteURL,
		},
		Wait: Constant(1),
	})
}
