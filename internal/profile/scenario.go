package profile

import (
	"context"

	"github.com/patric-chuzhbe/urlshrtload/internal/models"
	"github.com/patric-chuzhbe/urlshrtload/internal/user"
)

// CreateURL shortens the scenario target URL for the scenario user.
var CreateURL = Task{
	Name:   "create_url",
	Weight: 1,
	Run: func(ctx context.Context, u *user.VirtualUser) error {
		return u.CreateShortURL(ctx, models.ScenarioTargetURL, models.ScenarioUserID)
	},
}

// AccessURL looks up one of the short URLs the user created.
var AccessURL = Task{
	Name:   "access_url",
	Weight: 4,
	Run: func(ctx context.Context, u *user.VirtualUser) error {
		return u.AccessShortURL(ctx, models.ScenarioTargetURL)
	},
}

func init() {
	Register(Profile{
		Name:        "scenario",
		Description: "create short URLs and access them four times as often",
		Tasks:       []Task{CreateURL, AccessURL},
		Wait:        Between(10, 20),
	})
}
