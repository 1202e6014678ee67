package participants

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/wayfare/wayfare/pkg/wayfare/auth"
	"github.com/wayfare/wayfare/pkg/wayfare/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	models.AutoMigrate(db)
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, email string) models.User {
	hash, _ := auth.HashPassword("password123")
	user := models.User{
		Email:        email,
		PasswordHash: hash,
		Name:         "Test User",
		SystemRole:   models.SystemRoleUser,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return user
}

func setupTestRouter(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := NewHandler(db)

	trips := r.Group("/trips")
	trips.Use(auth.AuthMiddleware())
	handler.RegisterRoutes(trips)

	return r
}

func getAuthHeader(user models.User) string {
	token, _ := auth.GenerateToken(user.ID, user.Email, string(user.SystemRole))
	return "Bearer " + token
}

// createCircleTrip creates a circle with the given members and a
// collaborative trip led by the first member.
func createCircleTrip(t *testing.T, db *gorm.DB, members ...models.User) models.Trip {
	circle := models.Circle{Name: "Test Circle", OwnerID: members[0].ID}
	if err := db.Create(&circle).Error; err != nil {
		t.Fatalf("Failed to create circle: %v", err)
	}
	for _, m := range members {
		db.Create(&models.CircleMembership{UserID: m.ID, CircleID: circle.ID, Role: models.CircleRoleMember})
	}
	trip := models.Trip{
		Name:        "Test Trip",
		Type:        models.TripTypeCollaborative,
		CircleID:    circle.ID,
		Status:      models.TripStatusScheduling,
		Lifecycle:   models.TripLifecycleActive,
		CreatedByID: members[0].ID,
	}
	if err := db.Create(&trip).Error; err != nil {
		t.Fatalf("Failed to create trip: %v", err)
	}
	return trip
}

func doRequest(router *gin.Engine, method, path string, body interface{}, user models.User) *httptest.ResponseRecorder {
	var buf *bytes.Buffer
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		buf = bytes.NewBuffer(jsonBody)
	} else {
		buf = bytes.NewBuffer(nil)
	}
	req, _ := http.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", getAuthHeader(user))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestLeaveTrip(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	leader := createTestUser(t, db, "leader@example.com")
	member := createTestUser(t, db, "member@example.com")
	trip := createCircleTrip(t, db, leader, member)

	resp := doRequest(router, "POST", fmt.Sprintf("/trips/%d/leave", trip.ID), nil, member)

	if resp.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var row models.TripParticipant
	if err := db.Where("trip_id = ? AND user_id = ?", trip.ID, member.ID).First(&row).Error; err != nil {
		t.Fatalf("Expected an override row after leaving: %v", err)
	}
	if row.Status != models.ParticipantStatusLeft {
		t.Errorf("Expected status left, got %s", row.Status)
	}
}

func TestLeaderCannotLeaveWithOthersActive(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	leader := createTestUser(t, db, "leader@example.com")
	member := createTestUser(t, db, "member@example.com")
	trip := createCircleTrip(t, db, leader, member)

	resp := doRequest(router, "POST", fmt.Sprintf("/trips/%d/leave", trip.ID), nil, leader)

	if resp.Code != http.StatusConflict {
		t.Errorf("Expected status 409, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestSoleTravelerCannotLeave(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	leader := createTestUser(t, db, "leader@example.com")
	trip := createCircleTrip(t, db, leader)

	resp := doRequest(router, "POST", fmt.Sprintf("/trips/%d/leave", trip.ID), nil, leader)

	if resp.Code != http.StatusConflict {
		t.Errorf("Expected status 409, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestLeftMemberCanRejoin(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	leader := createTestUser(t, db, "leader@example.com")
	member := createTestUser(t, db, "member@example.com")
	trip := createCircleTrip(t, db, leader, member)

	doRequest(router, "POST", fmt.Sprintf("/trips/%d/leave", trip.ID), nil, member)
	resp := doRequest(router, "POST", fmt.Sprintf("/trips/%d/join", trip.ID), nil, member)

	if resp.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var row models.TripParticipant
	db.Where("trip_id = ? AND user_id = ?", trip.ID, member.ID).First(&row)
	if row.Status != models.ParticipantStatusActive {
		t.Errorf("Expected status active after rejoin, got %s", row.Status)
	}
}

func TestRemovedMemberCannotRejoin(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	leader := createTestUser(t, db, "leader@example.com")
	member := createTestUser(t, db, "member@example.com")
	trip := createCircleTrip(t, db, leader, member)

	remove := doRequest(router, "DELETE", fmt.Sprintf("/trips/%d/participants/%d", trip.ID, member.ID), nil, leader)
	if remove.Code != http.StatusOK {
		t.Fatalf("Expected removal to succeed, got %d: %s", remove.Code, remove.Body.String())
	}

	resp := doRequest(router, "POST", fmt.Sprintf("/trips/%d/join", trip.ID), nil, member)
	if resp.Code != http.StatusForbidden {
		t.Errorf("Expected status 403, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestActiveCannotJoinTwice(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	leader := createTestUser(t, db, "leader@example.com")
	trip := createCircleTrip(t, db, leader)

	resp := doRequest(router, "POST", fmt.Sprintf("/trips/%d/join", trip.ID), nil, leader)

	if resp.Code != http.StatusConflict {
		t.Errorf("Expected status 409, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestHostedJoinIsOptIn(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	host := createTestUser(t, db, "host@example.com")
	guest := createTestUser(t, db, "guest@example.com")

	start, end := "2026-06-01", "2026-06-05"
	trip := models.Trip{
		Name:            "Hosted Trip",
		Type:            models.TripTypeHosted,
		Status:          models.TripStatusLocked,
		Lifecycle:       models.TripLifecycleActive,
		LockedStartDate: &start,
		LockedEndDate:   &end,
		CreatedByID:     host.ID,
	}
	db.Create(&trip)
	db.Create(&models.TripParticipant{TripID: trip.ID, UserID: host.ID, Status: models.ParticipantStatusActive})

	resp := doRequest(router, "POST", fmt.Sprintf("/trips/%d/join", trip.ID), nil, guest)

	if resp.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestRemoveRequiresLeader(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	leader := createTestUser(t, db, "leader@example.com")
	member := createTestUser(t, db, "member@example.com")
	trip := createCircleTrip(t, db, leader, member)

	resp := doRequest(router, "DELETE", fmt.Sprintf("/trips/%d/participants/%d", trip.ID, leader.ID), nil, member)

	if resp.Code != http.StatusForbidden {
		t.Errorf("Expected status 403, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestTransferHandshake(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	leader := createTestUser(t, db, "leader@example.com")
	member := createTestUser(t, db, "member@example.com")
	trip := createCircleTrip(t, db, leader, member)

	initiate := doRequest(router, "POST", fmt.Sprintf("/trips/%d/transfer-leadership", trip.ID),
		TransferRequest{ToUserID: member.ID}, leader)
	if initiate.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", initiate.Code, initiate.Body.String())
	}

	// Leadership has not moved yet
	var mid models.Trip
	db.First(&mid, trip.ID)
	if mid.CreatedByID != leader.ID {
		t.Error("Expected leadership unchanged while transfer is pending")
	}

	accept := doRequest(router, "POST", fmt.Sprintf("/trips/%d/transfer-leadership/accept", trip.ID), nil, member)
	if accept.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", accept.Code, accept.Body.String())
	}

	var after models.Trip
	db.First(&after, trip.ID)
	if after.CreatedByID != member.ID {
		t.Errorf("Expected leadership moved to %d, got %d", member.ID, after.CreatedByID)
	}

	var count int64
	db.Model(&models.PendingLeadershipTransfer{}).Where("trip_id = ?", trip.ID).Count(&count)
	if count != 0 {
		t.Error("Expected pending transfer to be cleared after acceptance")
	}
}

func TestTransferRejectsSecondPending(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	leader := createTestUser(t, db, "leader@example.com")
	a := createTestUser(t, db, "a@example.com")
	b := createTestUser(t, db, "b@example.com")
	trip := createCircleTrip(t, db, leader, a, b)

	doRequest(router, "POST", fmt.Sprintf("/trips/%d/transfer-leadership", trip.ID), TransferRequest{ToUserID: a.ID}, leader)
	resp := doRequest(router, "POST", fmt.Sprintf("/trips/%d/transfer-leadership", trip.ID), TransferRequest{ToUserID: b.ID}, leader)

	if resp.Code != http.StatusConflict {
		t.Errorf("Expected status 409, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestTransferToNonActiveRejected(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	leader := createTestUser(t, db, "leader@example.com")
	member := createTestUser(t, db, "member@example.com")
	trip := createCircleTrip(t, db, leader, member)

	doRequest(router, "POST", fmt.Sprintf("/trips/%d/leave", trip.ID), nil, member)
	resp := doRequest(router, "POST", fmt.Sprintf("/trips/%d/transfer-leadership", trip.ID),
		TransferRequest{ToUserID: member.ID}, leader)

	if resp.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestTransferVoidedWhenRecipientLeaves(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	leader := createTestUser(t, db, "leader@example.com")
	member := createTestUser(t, db, "member@example.com")
	trip := createCircleTrip(t, db, leader, member)

	doRequest(router, "POST", fmt.Sprintf("/trips/%d/transfer-leadership", trip.ID),
		TransferRequest{ToUserID: member.ID}, leader)
	doRequest(router, "POST", fmt.Sprintf("/trips/%d/leave", trip.ID), nil, member)

	// Leaving voids the pending transfer aimed at the leaver
	var count int64
	db.Model(&models.PendingLeadershipTransfer{}).Where("trip_id = ?", trip.ID).Count(&count)
	if count != 0 {
		t.Error("Expected pending transfer voided when the recipient left")
	}

	var after models.Trip
	db.First(&after, trip.ID)
	if after.CreatedByID != leader.ID {
		t.Error("Expected leadership unchanged after voided transfer")
	}
}

func TestTransferDecline(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	leader := createTestUser(t, db, "leader@example.com")
	member := createTestUser(t, db, "member@example.com")
	trip := createCircleTrip(t, db, leader, member)

	doRequest(router, "POST", fmt.Sprintf("/trips/%d/transfer-leadership", trip.ID),
		TransferRequest{ToUserID: member.ID}, leader)
	resp := doRequest(router, "POST", fmt.Sprintf("/trips/%d/transfer-leadership/decline", trip.ID), nil, member)

	if resp.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var after models.Trip
	db.First(&after, trip.ID)
	if after.CreatedByID != leader.ID {
		t.Error("Expected leadership unchanged after decline")
	}
}

func TestTransferCanBeReinitiatedAfterResolution(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	leader := createTestUser(t, db, "leader@example.com")
	member := createTestUser(t, db, "member@example.com")
	other := createTestUser(t, db, "other@example.com")
	trip := createCircleTrip(t, db, leader, member, other)

	initiate := func(to uint) *httptest.ResponseRecorder {
		return doRequest(router, "POST", fmt.Sprintf("/trips/%d/transfer-leadership", trip.ID),
			TransferRequest{ToUserID: to}, leader)
	}

	// Resolution must clear the handshake fully; a dead row would block
	// every later hand-off on the per-trip unique index
	initiate(member.ID)
	doRequest(router, "POST", fmt.Sprintf("/trips/%d/transfer-leadership/decline", trip.ID), nil, member)
	resp := initiate(member.ID)
	if resp.Code != http.StatusCreated {
		t.Fatalf("Expected status 201 after decline, got %d: %s", resp.Code, resp.Body.String())
	}

	doRequest(router, "POST", fmt.Sprintf("/trips/%d/transfer-leadership/cancel", trip.ID), nil, leader)
	resp = initiate(other.ID)
	if resp.Code != http.StatusCreated {
		t.Fatalf("Expected status 201 after cancel, got %d: %s", resp.Code, resp.Body.String())
	}

	// Recipient leaving voids the pending hand-off; the trip must still
	// accept a fresh one afterwards
	doRequest(router, "POST", fmt.Sprintf("/trips/%d/leave", trip.ID), nil, other)
	resp = initiate(member.ID)
	if resp.Code != http.StatusCreated {
		t.Fatalf("Expected status 201 after void, got %d: %s", resp.Code, resp.Body.String())
	}

	var pending int64
	db.Model(&models.PendingLeadershipTransfer{}).Where("trip_id = ?", trip.ID).Count(&pending)
	if pending != 1 {
		t.Errorf("Expected exactly 1 pending transfer, got %d", pending)
	}
}

func TestTransferCancelByInitiatorOnly(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	leader := createTestUser(t, db, "leader@example.com")
	member := createTestUser(t, db, "member@example.com")
	trip := createCircleTrip(t, db, leader, member)

	doRequest(router, "POST", fmt.Sprintf("/trips/%d/transfer-leadership", trip.ID),
		TransferRequest{ToUserID: member.ID}, leader)

	denied := doRequest(router, "POST", fmt.Sprintf("/trips/%d/transfer-leadership/cancel", trip.ID), nil, member)
	if denied.Code != http.StatusForbidden {
		t.Errorf("Expected status 403, got %d: %s", denied.Code, denied.Body.String())
	}

	resp := doRequest(router, "POST", fmt.Sprintf("/trips/%d/transfer-leadership/cancel", trip.ID), nil, leader)
	if resp.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
}
