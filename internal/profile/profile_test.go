package profile

import (
	"context"
	"math/rand"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/urlshrtload/internal/mockshortener"
	"github.com/patric-chuzhbe/urlshrtload/internal/models"
	"github.com/patric-chuzhbe/urlshrtload/internal/stats"
	"github.com/patric-chuzhbe/urlshrtload/internal/user"
)

func TestChoices(t *testing.T) {
	assert.Equal(t, []string{"fixed", "missing", "mixed", "scenario", "write"}, Choices())

	_, ok := Get("nope")
	assert.False(t, ok)
}

func TestScenarioProfile(t *testing.T) {
	p, ok := Get("scenario")
	require.True(t, ok)

	assert.Equal(t, Between(10, 20), p.Wait)
	require.Len(t, p.Tasks, 2)
	assert.Equal(t, "create_url", p.Tasks[0].Name)
	assert.Equal(t, 1, p.Tasks[0].Weight)
	assert.Equal(t, "access_url", p.Tasks[1].Name)
	assert.Equal(t, 4, p.Tasks[1].Weight)
}

func TestFixedProfile(t *testing.T) {
	p, ok := Get("fixed")
	require.True(t, ok)
	assert.Equal(t, Between(1, 3), p.Wait)
	require.Len(t, p.Tasks, 1)

	client := &mockshortener.ShortenerMock{}
	client.On("Create", mock.Anything, models.ScenarioTargetURL, models.ScenarioUserID).
		Return(mockshortener.JSON(http.StatusCreated, `{"shortUrl":"mine"}`), nil).
		Once()
	client.On("Fetch", mock.Anything, "/short/XPwhgzM7").
		Return(mockshortener.JSON(http.StatusOK, ``), nil).
		Once()
	u := user.New(1, client, stats.New())

	require.NoError(t, u.CreateShortURL(context.Background(), models.ScenarioTargetURL, models.ScenarioUserID))
	require.Equal(t, []string{"mine"}, u.RecordedURLs())

	// the recorded URL is ignored: exactly one GET of the hardcoded short URL
	require.NoError(t, p.Pick(u.Rand()).Run(context.Background(), u))
	client.AssertExpectations(t)
	client.AssertNumberOfCalls(t, "Fetch", 1)
	client.AssertNotCalled(t, "Access", mock.Anything, mock.Anything)
	assert.Equal(t, []string{"mine"}, u.RecordedURLs())
}

func TestPickRespectsWeights(t *testing.T) {
	p := Profile{
		Name: "weighted",
		Tasks: []Task{
			{Name: "never", Weight: 0},
			{Name: "one", Weight: 1},
			{Name: "four", Weight: 4},
		},
	}
	rnd := rand.New(rand.NewSource(42))

	picked := map[string]int{}
	for i := 0; i < 10000; i++ {
		picked[p.Pick(rnd).Name]++
	}

	assert.Zero(t, picked["never"])
	assert.InDelta(t, 0.2, float64(picked["one"])/10000, 0.03)
	assert.InDelta(t, 0.8, float64(picked["four"])/10000, 0.03)
}

func TestWaitNext(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))

	for i := 0; i < 1000; i++ {
		d := Between(10, 20).Next(rnd, time.Millisecond)
		assert.GreaterOrEqual(t, d, 10*time.Millisecond)
		assert.LessOrEqual(t, d, 20*time.Millisecond)
	}

	assert.Equal(t, 500*time.Millisecond, Constant(0.5).Next(rnd, time.Second))
	assert.Equal(t, time.Duration(0), Wait{}.Next(rnd, time.Second))
}

func TestRegisterRejectsUnweightedProfile(t *testing.T) {
	assert.Panics(t, func() {
		Register(Profile{Name: "empty", Tasks: []Task{{Name: "idle"}}})
	})
	_, ok := Get("empty")
	assert.False(t, ok)
}

func TestScenarioTasksDriveTheUser(t *testing.T) {
	client := &mockshortener.ShortenerMock{}
	client.On("Create", mock.Anything, models.ScenarioTargetURL, models.ScenarioUserID).
		Return(mockshortener.JSON(http.StatusCreated, `{"shortUrl":"k8s"}`), nil)
	client.On("Access", mock.Anything, "k8s").
		Return(mockshortener.JSON(http.StatusOK, `{"originalUrl":"`+models.ScenarioTargetURL+`"}`), nil)
	u := user.New(1, client, stats.New())

	assert.ErrorIs(t, AccessURL.Run(context.Background(), u), user.ErrNothingToAccess)
	require.NoError(t, CreateURL.Run(context.Background(), u))
	require.NoError(t, AccessURL.Run(context.Background(), u))

	client.AssertExpectations(t)
}

func TestMissingAndMixedProfiles(t *testing.T) {
	client := &mockshortener.ShortenerMock{}
	client.On("Fetch", mock.Anything, "/short/CCaICRddd").
		Return(mockshortener.JSON(http.StatusNotFound, ``), nil)
	client.On("Fetch", mock.Anything, "/short/CCaICRin").
		Return(mockshortener.JSON(http.StatusOK, ``), nil)
	client.On("Create", mock.Anything, models.WriteTargetURL, models.WriteUserID).
		Return(mockshortener.JSON(http.StatusCreated, `{"shortUrl":"g"}`), nil)
	collector := stats.New()
	u := user.New(1, client, collector)

	missing, ok := Get("missing")
	require.True(t, ok)
	require.NoError(t, missing.Tasks[0].Run(context.Background(), u))

	mixed, ok := Get("mixed")
	require.True(t, ok)
	for _, task := range mixed.Tasks {
		require.NoError(t, task.Run(context.Background(), u))
	}

	assert.Equal(t, 1.0, collector.Snapshot().CheckSuccessRate())
}
