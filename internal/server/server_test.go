package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	activitydomain "github.com/pressroomhq/commune/internal/activity/domain"
	activityrepo "github.com/pressroomhq/commune/internal/activity/repository"
	activityservice "github.com/pressroomhq/commune/internal/activity/service"
	"github.com/pressroomhq/commune/internal/clock"
	communitydomain "github.com/pressroomhq/commune/internal/community/domain"
	communityrepo "github.com/pressroomhq/commune/internal/community/repository"
	communityservice "github.com/pressroomhq/commune/internal/community/service"
	"github.com/pressroomhq/commune/internal/config"
	"github.com/pressroomhq/commune/internal/providers/email"
	userdomain "github.com/pressroomhq/commune/internal/user/domain"
	userrepo "github.com/pressroomhq/commune/internal/user/repository"
	userservice "github.com/pressroomhq/commune/internal/user/service"
	dbpkg "github.com/pressroomhq/commune/pkg/db"
)

func newTestServer(t *testing.T) (*Server, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn, err := dbpkg.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&communitydomain.Community{},
		&communitydomain.Member{},
		&communitydomain.Follower{},
		&communitydomain.JoinRequest{},
		&communitydomain.AuthorizedPerson{},
		&communitydomain.Invite{},
		&userdomain.User{},
		&userdomain.UserCommunity{},
		&activitydomain.Entry{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	log := zap.NewNop()

	users := userservice.NewDirectory(userrepo.NewRepository(conn), node)
	recorder := activityservice.NewRecorder(activityservice.Params{
		Log:   log,
		GenID: node,
		Repo:  activityrepo.NewRepository(conn),
	})
	communities := communityservice.NewService(communityservice.Params{
		Log:      log,
		GenID:    node,
		Clock:    clock.NewFakeClock(time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)),
		Repo:     communityrepo.NewRepository(conn),
		Users:    users,
		Activity: recorder,
		Mail:     &email.NoOpProvider{},
		Policy:   config.NewStaticPolicyHolder(config.DefaultCommunityPolicy()),
	})

	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())

	srv := NewServer(ServerParams{
		Gin:          engine,
		Cfg:          config.Config{},
		DB:           conn,
		GenID:        node,
		CommunitySvc: communities,
		UserSvc:      users,
		ActivitySvc:  recorder,
	})
	return srv, conn
}

func doJSON(t *testing.T, srv *Server, method, path string, actor string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if actor != "" {
		req.Header.Set(HeaderActor, actor)
	}

	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var envelope struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	return envelope.Data
}

func TestCommunityLifecycleOverHTTP(t *testing.T) {
	srv, conn := newTestServer(t)

	// Register the creator and an applicant.
	w := doJSON(t, srv, http.MethodPost, "/api/users", "", map[string]string{
		"full_name": "Ada Editor", "email": "ada@example.org",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	creatorID := decodeData(t, w)["id"].(string)

	w = doJSON(t, srv, http.MethodPost, "/api/users", "", map[string]string{
		"full_name": "Noa Reporter", "email": "noa@example.org",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	applicantID := decodeData(t, w)["id"].(string)

	// Unauthenticated creation is rejected.
	w = doJSON(t, srv, http.MethodPost, "/api/communities", "", map[string]string{
		"name": "Harbor City Desk", "type": "Multi",
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, srv, http.MethodPost, "/api/communities", creatorID, map[string]string{
		"name": "Harbor City Desk", "type": "Multi",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decodeData(t, w)
	communityID := created["id"].(string)
	require.Equal(t, "Pending", created["status"])

	// Duplicate name conflicts.
	w = doJSON(t, srv, http.MethodPost, "/api/communities", creatorID, map[string]string{
		"name": "Harbor City Desk", "type": "Multi",
	})
	require.Equal(t, http.StatusConflict, w.Code)

	// Join flow.
	w = doJSON(t, srv, http.MethodPost, "/api/communities/"+communityID+"/join-requests", applicantID, nil)
	require.Equal(t, http.StatusAccepted, w.Code)

	// The applicant cannot approve their own request.
	path := fmt.Sprintf("/api/communities/%s/join-requests/%s/approve", communityID, applicantID)
	w = doJSON(t, srv, http.MethodPost, path, applicantID, nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, srv, http.MethodPost, path, creatorID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, srv, http.MethodGet, "/api/communities/"+communityID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.EqualValues(t, 2, decodeData(t, w)["members_count"])

	// Invite two approvers and confirm their codes to activate.
	parsedCommunityID, err := snowflake.ParseString(communityID)
	require.NoError(t, err)

	approvers := []struct{ id, email string }{
		{creatorID, "ada@example.org"},
		{applicantID, "noa@example.org"},
	}
	for _, approver := range approvers {
		w = doJSON(t, srv, http.MethodPost, "/api/communities/"+communityID+"/authorized-persons/invite", creatorID, map[string]string{
			"email": approver.email,
		})
		require.Equal(t, http.StatusOK, w.Code)

		var invite communitydomain.Invite
		require.NoError(t, conn.First(&invite, "community_id = ? AND email = ?", parsedCommunityID, approver.email).Error)

		w = doJSON(t, srv, http.MethodPost, "/api/communities/"+communityID+"/authorized-persons/verify", approver.id, map[string]string{
			"otp": invite.OTP,
		})
		require.Equal(t, http.StatusOK, w.Code)
	}

	w = doJSON(t, srv, http.MethodGet, "/api/communities/"+communityID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "Active", decodeData(t, w)["status"])
}

func TestErrorMapping(t *testing.T) {
	srv, _ := newTestServer(t)

	// Unknown community id maps to 404.
	w := doJSON(t, srv, http.MethodGet, "/api/communities/123456789", "", nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	// Malformed id maps to 400.
	w = doJSON(t, srv, http.MethodGet, "/api/communities/not-an-id", "", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	// Invalid body maps to 400.
	w = doJSON(t, srv, http.MethodPost, "/api/users", "", map[string]string{
		"full_name": "No Email",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
}
