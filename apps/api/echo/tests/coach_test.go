package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funnelseye/backoffice/core/coach"
	testutil "github.com/funnelseye/backoffice/tests"
)

func Test_coachApi_create(t *testing.T) {
	f := setup(t)

	body := marchallObj(t, coach.NewCoach{Name: " Jane Doe ", Email: "Jane@Test.CD"})
	req, rec := newRequest(http.MethodPost, "/v1/coaches", body)
	f.app.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var c coach.Coach
	unmarchallObj(t, rec, &c)
	assert.NotZero(t, c.ID)
	assert.Equal(t, "Jane Doe", c.Name)
	assert.Equal(t, "jane@test.cd", c.Email)
	assert.Equal(t, coach.RankBronze, c.Rank) // default rank
	assert.True(t, c.IsActive)
}

func Test_coachApi_create_invalid(t *testing.T) {
	f := setup(t)
	testutil.CreateCoach(t, f.coachRepo, "Taken", "taken@test.cd", coach.RankGold, 0, true)

	tests := []httpTest{
		{
			name:     "empty body",
			body:     []byte("{}"),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"name":  "this field is required",
				"email": "this field is required",
			}),
		},
		{
			name:     "invalid email",
			body:     marchallObj(t, coach.NewCoach{Name: "Jo", Email: "nope"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": "email must be a valid email address"}),
		},
		{
			name:     "unknown rank",
			body:     marchallObj(t, coach.NewCoach{Name: "Jo", Email: "jo@test.cd", Rank: "emerald"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"rank": "invalid rank"}),
		},
		{
			name:     "duplicate email",
			body:     marchallObj(t, coach.NewCoach{Name: "Jo", Email: "Taken@Test.CD"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": coach.ErrEmailExists.Error()}),
		},
		{
			name:     "unknown sponsor",
			body:     marchallObj(t, coach.NewCoach{Name: "Jo", Email: "jo@test.cd", SponsorID: 666}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"sponsor_id": "sponsor not found"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/coaches", tt.body)
			f.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_coachApi_query(t *testing.T) {
	f := setup(t)

	req, rec := newRequest(http.MethodGet, "/v1/coaches")
	f.app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallList(t)}, rec)

	c1 := testutil.CreateCoach(t, f.coachRepo, "Amy", "amy@test.cd", coach.RankDiamond, 0, true)
	c2 := testutil.CreateCoach(t, f.coachRepo, "Ben", "ben@test.cd", coach.RankSilver, c1.ID, true)

	req, rec = newRequest(http.MethodGet, "/v1/coaches")
	f.app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallList(t, c1, c2)}, rec)
}

func Test_coachApi_retrieve(t *testing.T) {
	f := setup(t)
	c := testutil.CreateCoach(t, f.coachRepo, "Amy", "amy@test.cd", coach.RankGold, 0, true)

	tests := []httpTest{
		{
			name:     "found",
			path:     "/v1/coaches/" + itoa(c.ID),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, c),
		},
		{
			name:     "not found",
			path:     "/v1/coaches/666",
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
		{
			name:     "junk id",
			path:     "/v1/coaches/abc",
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodGet, tt.path)
			f.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_coachApi_update(t *testing.T) {
	f := setup(t)
	c := testutil.CreateCoach(t, f.coachRepo, "Amy", "amy@test.cd", coach.RankSilver, 0, true)

	inactive := false
	body := marchallObj(t, coach.UpdateCoach{Rank: "Gold", IsActive: &inactive})
	req, rec := newRequest(http.MethodPut, "/v1/coaches/"+itoa(c.ID), body)
	f.app.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got coach.Coach
	unmarchallObj(t, rec, &got)
	assert.Equal(t, "Amy", got.Name) // unchanged
	assert.Equal(t, coach.RankGold, got.Rank)
	assert.False(t, got.IsActive)

	// unknown rank is rejected
	req, rec = newRequest(http.MethodPut, "/v1/coaches/"+itoa(c.ID), marchallObj(t, coach.UpdateCoach{Rank: "emerald"}))
	f.app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusBadRequest,
		wantData: marchallObj(t, map[string]string{"rank": "invalid rank"}),
	}, rec)
}

func Test_coachApi_sponsorChain(t *testing.T) {
	f := setup(t)
	root := testutil.CreateCoach(t, f.coachRepo, "Root", "root@test.cd", coach.RankDiamond, 0, true)
	mid := testutil.CreateCoach(t, f.coachRepo, "Mid", "mid@test.cd", coach.RankGold, root.ID, true)
	leaf := testutil.CreateCoach(t, f.coachRepo, "Leaf", "leaf@test.cd", coach.RankBronze, mid.ID, true)

	// nearest ancestor first
	req, rec := newRequest(http.MethodGet, "/v1/coaches/"+itoa(leaf.ID)+"/chain")
	f.app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusOK,
		wantData: marchallList(t,
			coach.ChainMember{CoachID: mid.ID, Rank: coach.RankGold},
			coach.ChainMember{CoachID: root.ID, Rank: coach.RankDiamond},
		),
	}, rec)

	// a root coach has no ancestors
	req, rec = newRequest(http.MethodGet, "/v1/coaches/"+itoa(root.ID)+"/chain")
	f.app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallList(t)}, rec)
}
