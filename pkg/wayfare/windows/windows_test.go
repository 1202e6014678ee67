package windows

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/wayfare/wayfare/pkg/wayfare/auth"
	"github.com/wayfare/wayfare/pkg/wayfare/config"
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
	handler := NewHandler(db, config.DefaultScheduling())

	trips := r.Group("/trips")
	trips.Use(auth.AuthMiddleware())
	handler.RegisterRoutes(trips)

	return r
}

func getAuthHeader(user models.User) string {
	token, _ := auth.GenerateToken(user.ID, user.Email, string(user.SystemRole))
	return "Bearer " + token
}

// createFunnelTrip creates a date-windows trip led by the first member.
func createFunnelTrip(t *testing.T, db *gorm.DB, members ...models.User) models.Trip {
	circle := models.Circle{Name: "Test Circle", OwnerID: members[0].ID}
	db.Create(&circle)
	for _, m := range members {
		db.Create(&models.CircleMembership{UserID: m.ID, CircleID: circle.ID, Role: models.CircleRoleMember})
	}
	trip := models.Trip{
		Name:           "Funnel Trip",
		Type:           models.TripTypeCollaborative,
		CircleID:       circle.ID,
		SchedulingMode: models.SchedulingModeDateWindows,
		Status:         models.TripStatusScheduling,
		Lifecycle:      models.TripLifecycleActive,
		CreatedByID:    members[0].ID,
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

func TestCreateWindowWithDates(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	user := createTestUser(t, db, "test@example.com")
	trip := createFunnelTrip(t, db, user)

	resp := doRequest(router, "POST", fmt.Sprintf("/trips/%d/date-windows", trip.ID),
		CreateWindowRequest{StartDate: "2026-06-01", EndDate: "2026-06-05"}, user)

	if resp.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var response WindowResponse
	json.Unmarshal(resp.Body.Bytes(), &response)

	if response.Precision != string(models.WindowPrecisionExact) {
		t.Errorf("Expected exact precision, got %s", response.Precision)
	}
	if !response.Supported || response.SupportCount != 1 {
		t.Error("Expected the creator to auto-support their window")
	}
}

func TestCreateWindowFromText(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	user := createTestUser(t, db, "test@example.com")
	trip := createFunnelTrip(t, db, user)

	resp := doRequest(router, "POST", fmt.Sprintf("/trips/%d/date-windows", trip.ID),
		CreateWindowRequest{Text: "Jun 1-5, 2026"}, user)

	if resp.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var response WindowResponse
	json.Unmarshal(resp.Body.Bytes(), &response)
	if response.StartDate != "2026-06-01" || response.EndDate != "2026-06-05" {
		t.Errorf("Expected parsed dates, got [%s, %s]", response.StartDate, response.EndDate)
	}
}

func TestCreateWindowUnparseableTextIsUnstructured(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	user := createTestUser(t, db, "test@example.com")
	trip := createFunnelTrip(t, db, user)

	resp := doRequest(router, "POST", fmt.Sprintf("/trips/%d/date-windows", trip.ID),
		CreateWindowRequest{Text: "sometime in early summer"}, user)

	if resp.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var response WindowResponse
	json.Unmarshal(resp.Body.Bytes(), &response)
	if response.Precision != string(models.WindowPrecisionUnstructured) {
		t.Errorf("Expected unstructured precision, got %s", response.Precision)
	}
}

func TestCreateWindowRejectsWrongMode(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	user := createTestUser(t, db, "test@example.com")
	trip := createFunnelTrip(t, db, user)
	db.Model(&trip).Update("scheduling_mode", models.SchedulingModeHeatmap)

	resp := doRequest(router, "POST", fmt.Sprintf("/trips/%d/date-windows", trip.ID),
		CreateWindowRequest{StartDate: "2026-06-01", EndDate: "2026-06-05"}, user)

	if resp.Code != http.StatusConflict {
		t.Errorf("Expected status 409, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestCreateWindowCapEnforced(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	user := createTestUser(t, db, "test@example.com")
	trip := createFunnelTrip(t, db, user)

	for i := 0; i < config.DefaultScheduling().WindowCapPerUser; i++ {
		resp := doRequest(router, "POST", fmt.Sprintf("/trips/%d/date-windows", trip.ID),
			CreateWindowRequest{
				StartDate:          fmt.Sprintf("2026-0%d-01", i+1),
				EndDate:            fmt.Sprintf("2026-0%d-05", i+1),
				AcknowledgeOverlap: true,
			}, user)
		if resp.Code != http.StatusCreated {
			t.Fatalf("Window %d: expected status 201, got %d: %s", i, resp.Code, resp.Body.String())
		}
	}

	resp := doRequest(router, "POST", fmt.Sprintf("/trips/%d/date-windows", trip.ID),
		CreateWindowRequest{StartDate: "2026-09-01", EndDate: "2026-09-05", AcknowledgeOverlap: true}, user)

	if resp.Code != http.StatusConflict {
		t.Errorf("Expected status 409 at the cap, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestCreateSimilarWindowRejectedWithoutAcknowledgement(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	a := createTestUser(t, db, "a@example.com")
	b := createTestUser(t, db, "b@example.com")
	trip := createFunnelTrip(t, db, a, b)

	doRequest(router, "POST", fmt.Sprintf("/trips/%d/date-windows", trip.ID),
		CreateWindowRequest{StartDate: "2026-06-01", EndDate: "2026-06-05"}, a)

	resp := doRequest(router, "POST", fmt.Sprintf("/trips/%d/date-windows", trip.ID),
		CreateWindowRequest{StartDate: "2026-06-01", EndDate: "2026-06-05"}, b)

	if resp.Code != http.StatusConflict {
		t.Fatalf("Expected status 409, got %d: %s", resp.Code, resp.Body.String())
	}

	var body map[string]interface{}
	json.Unmarshal(resp.Body.Bytes(), &body)
	if _, ok := body["similar_window_id"]; !ok {
		t.Error("Expected the conflict to name the similar window")
	}

	// Acknowledging the overlap allows the duplicate through
	resp = doRequest(router, "POST", fmt.Sprintf("/trips/%d/date-windows", trip.ID),
		CreateWindowRequest{StartDate: "2026-06-01", EndDate: "2026-06-05", AcknowledgeOverlap: true}, b)
	if resp.Code != http.StatusCreated {
		t.Errorf("Expected status 201 with acknowledgement, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestSupportToggleIdempotent(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	a := createTestUser(t, db, "a@example.com")
	b := createTestUser(t, db, "b@example.com")
	trip := createFunnelTrip(t, db, a, b)

	doRequest(router, "POST", fmt.Sprintf("/trips/%d/date-windows", trip.ID),
		CreateWindowRequest{StartDate: "2026-06-01", EndDate: "2026-06-05"}, a)

	var window models.DateWindow
	db.Where("trip_id = ?", trip.ID).First(&window)

	path := fmt.Sprintf("/trips/%d/date-windows/%d/support", trip.ID, window.ID)
	doRequest(router, "POST", path, nil, b)
	doRequest(router, "POST", path, nil, b) // repeat is a no-op

	var count int64
	db.Model(&models.WindowSupport{}).Where("window_id = ?", window.ID).Count(&count)
	if count != 2 {
		t.Errorf("Expected 2 supports (creator + b), got %d", count)
	}

	doRequest(router, "DELETE", path, nil, b)
	db.Model(&models.WindowSupport{}).Where("window_id = ?", window.ID).Count(&count)
	if count != 1 {
		t.Errorf("Expected 1 support after withdrawal, got %d", count)
	}
}

func TestSupportCanBeReAddedAfterWithdrawal(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	a := createTestUser(t, db, "a@example.com")
	b := createTestUser(t, db, "b@example.com")
	trip := createFunnelTrip(t, db, a, b)

	doRequest(router, "POST", fmt.Sprintf("/trips/%d/date-windows", trip.ID),
		CreateWindowRequest{StartDate: "2026-06-01", EndDate: "2026-06-05"}, a)

	var window models.DateWindow
	db.Where("trip_id = ?", trip.ID).First(&window)

	path := fmt.Sprintf("/trips/%d/date-windows/%d/support", trip.ID, window.ID)
	doRequest(router, "POST", path, nil, b)
	doRequest(router, "DELETE", path, nil, b)

	// Withdrawal must not leave a dead row blocking the unique index
	resp := doRequest(router, "POST", path, nil, b)
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200 on re-support, got %d: %s", resp.Code, resp.Body.String())
	}

	var count int64
	db.Model(&models.WindowSupport{}).Where("window_id = ?", window.ID).Count(&count)
	if count != 2 {
		t.Errorf("Expected 2 supports after re-support, got %d", count)
	}
}

func TestProposeBelowThresholdRejected(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	leader := createTestUser(t, db, "leader@example.com")
	b := createTestUser(t, db, "b@example.com")
	c := createTestUser(t, db, "c@example.com")
	trip := createFunnelTrip(t, db, leader, b, c)

	doRequest(router, "POST", fmt.Sprintf("/trips/%d/date-windows", trip.ID),
		CreateWindowRequest{StartDate: "2026-06-01", EndDate: "2026-06-05"}, leader)

	var window models.DateWindow
	db.Where("trip_id = ?", trip.ID).First(&window)

	// 1 of 3 supporters: below the 0.5 default threshold
	resp := doRequest(router, "POST", fmt.Sprintf("/trips/%d/propose-dates", trip.ID),
		ProposeRequest{WindowID: window.ID}, leader)

	if resp.Code != http.StatusConflict {
		t.Fatalf("Expected status 409, got %d: %s", resp.Code, resp.Body.String())
	}

	var body map[string]interface{}
	json.Unmarshal(resp.Body.Bytes(), &body)
	if _, ok := body["readiness"]; !ok {
		t.Error("Expected the rejection to carry readiness details")
	}
}

func TestProposeWithLeaderOverride(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	leader := createTestUser(t, db, "leader@example.com")
	b := createTestUser(t, db, "b@example.com")
	c := createTestUser(t, db, "c@example.com")
	trip := createFunnelTrip(t, db, leader, b, c)

	doRequest(router, "POST", fmt.Sprintf("/trips/%d/date-windows", trip.ID),
		CreateWindowRequest{StartDate: "2026-06-01", EndDate: "2026-06-05"}, leader)

	var window models.DateWindow
	db.Where("trip_id = ?", trip.ID).First(&window)

	resp := doRequest(router, "POST", fmt.Sprintf("/trips/%d/propose-dates", trip.ID),
		ProposeRequest{WindowID: window.ID, LeaderOverride: true}, leader)

	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200 with override, got %d: %s", resp.Code, resp.Body.String())
	}

	var after models.Trip
	db.First(&after, trip.ID)
	if after.ProposedWindowID == nil || *after.ProposedWindowID != window.ID {
		t.Error("Expected the trip to point at the proposed window")
	}
}

func TestProposeAtThreshold(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	leader := createTestUser(t, db, "leader@example.com")
	b := createTestUser(t, db, "b@example.com")
	trip := createFunnelTrip(t, db, leader, b)

	doRequest(router, "POST", fmt.Sprintf("/trips/%d/date-windows", trip.ID),
		CreateWindowRequest{StartDate: "2026-06-01", EndDate: "2026-06-05"}, leader)

	var window models.DateWindow
	db.Where("trip_id = ?", trip.ID).First(&window)

	// Creator support alone is 1/2 = exactly the threshold
	resp := doRequest(router, "POST", fmt.Sprintf("/trips/%d/propose-dates", trip.ID),
		ProposeRequest{WindowID: window.ID}, leader)

	if resp.Code != http.StatusOK {
		t.Errorf("Expected status 200 at threshold, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestProposeRequiresLeader(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	leader := createTestUser(t, db, "leader@example.com")
	member := createTestUser(t, db, "member@example.com")
	trip := createFunnelTrip(t, db, leader, member)

	doRequest(router, "POST", fmt.Sprintf("/trips/%d/date-windows", trip.ID),
		CreateWindowRequest{StartDate: "2026-06-01", EndDate: "2026-06-05"}, member)

	var window models.DateWindow
	db.Where("trip_id = ?", trip.ID).First(&window)

	resp := doRequest(router, "POST", fmt.Sprintf("/trips/%d/propose-dates", trip.ID),
		ProposeRequest{WindowID: window.ID, LeaderOverride: true}, member)

	if resp.Code != http.StatusForbidden {
		t.Errorf("Expected status 403, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestProposeUnstructuredRequiresConcretization(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	leader := createTestUser(t, db, "leader@example.com")
	trip := createFunnelTrip(t, db, leader)

	doRequest(router, "POST", fmt.Sprintf("/trips/%d/date-windows", trip.ID),
		CreateWindowRequest{Text: "sometime in summer"}, leader)

	var window models.DateWindow
	db.Where("trip_id = ?", trip.ID).First(&window)

	resp := doRequest(router, "POST", fmt.Sprintf("/trips/%d/propose-dates", trip.ID),
		ProposeRequest{WindowID: window.ID}, leader)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400 without dates, got %d: %s", resp.Code, resp.Body.String())
	}

	resp = doRequest(router, "POST", fmt.Sprintf("/trips/%d/propose-dates", trip.ID),
		ProposeRequest{WindowID: window.ID, StartDate: "2026-07-01", EndDate: "2026-07-05"}, leader)
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200 with concretization, got %d: %s", resp.Code, resp.Body.String())
	}

	var after models.DateWindow
	db.First(&after, window.ID)
	if after.Precision != models.WindowPrecisionExact || after.StartDate != "2026-07-01" {
		t.Errorf("Expected window concretized to exact dates, got %s [%s, %s]",
			after.Precision, after.StartDate, after.EndDate)
	}
}

func TestCreateWindowRejectedWhileProposed(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	leader := createTestUser(t, db, "leader@example.com")
	trip := createFunnelTrip(t, db, leader)

	doRequest(router, "POST", fmt.Sprintf("/trips/%d/date-windows", trip.ID),
		CreateWindowRequest{StartDate: "2026-06-01", EndDate: "2026-06-05"}, leader)
	var window models.DateWindow
	db.Where("trip_id = ?", trip.ID).First(&window)
	doRequest(router, "POST", fmt.Sprintf("/trips/%d/propose-dates", trip.ID),
		ProposeRequest{WindowID: window.ID, LeaderOverride: true}, leader)

	resp := doRequest(router, "POST", fmt.Sprintf("/trips/%d/date-windows", trip.ID),
		CreateWindowRequest{StartDate: "2026-08-01", EndDate: "2026-08-05"}, leader)

	if resp.Code != http.StatusConflict {
		t.Errorf("Expected status 409 while proposed, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestWithdrawProposalKeepsWindows(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	leader := createTestUser(t, db, "leader@example.com")
	trip := createFunnelTrip(t, db, leader)

	doRequest(router, "POST", fmt.Sprintf("/trips/%d/date-windows", trip.ID),
		CreateWindowRequest{StartDate: "2026-06-01", EndDate: "2026-06-05"}, leader)
	var window models.DateWindow
	db.Where("trip_id = ?", trip.ID).First(&window)
	doRequest(router, "POST", fmt.Sprintf("/trips/%d/propose-dates", trip.ID),
		ProposeRequest{WindowID: window.ID, LeaderOverride: true}, leader)

	resp := doRequest(router, "POST", fmt.Sprintf("/trips/%d/withdraw-proposal", trip.ID), nil, leader)
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var after models.Trip
	db.First(&after, trip.ID)
	if after.ProposedWindowID != nil {
		t.Error("Expected the proposal pointer cleared")
	}

	var windowCount, supportCount int64
	db.Model(&models.DateWindow{}).Where("trip_id = ?", trip.ID).Count(&windowCount)
	db.Model(&models.WindowSupport{}).Where("window_id = ?", window.ID).Count(&supportCount)
	if windowCount != 1 || supportCount != 1 {
		t.Errorf("Expected windows and support to survive withdrawal, got %d windows %d supports",
			windowCount, supportCount)
	}
}

func TestLockProposed(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	leader := createTestUser(t, db, "leader@example.com")
	trip := createFunnelTrip(t, db, leader)

	doRequest(router, "POST", fmt.Sprintf("/trips/%d/date-windows", trip.ID),
		CreateWindowRequest{StartDate: "2026-06-01", EndDate: "2026-06-05"}, leader)
	var window models.DateWindow
	db.Where("trip_id = ?", trip.ID).First(&window)
	doRequest(router, "POST", fmt.Sprintf("/trips/%d/propose-dates", trip.ID),
		ProposeRequest{WindowID: window.ID, LeaderOverride: true}, leader)

	resp := doRequest(router, "POST", fmt.Sprintf("/trips/%d/lock-proposed", trip.ID), nil, leader)
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var after models.Trip
	db.First(&after, trip.ID)
	if !after.DatesLocked() {
		t.Fatal("Expected dates locked")
	}
	if *after.LockedStartDate != "2026-06-01" || *after.LockedEndDate != "2026-06-05" {
		t.Errorf("Expected locked [2026-06-01, 2026-06-05], got [%s, %s]",
			*after.LockedStartDate, *after.LockedEndDate)
	}
	if after.Status != models.TripStatusLocked {
		t.Errorf("Expected status locked, got %s", after.Status)
	}

	// Locking is one-way: further funnel mutation fails
	resp = doRequest(router, "POST", fmt.Sprintf("/trips/%d/date-windows", trip.ID),
		CreateWindowRequest{StartDate: "2026-08-01", EndDate: "2026-08-05"}, leader)
	if resp.Code != http.StatusConflict {
		t.Errorf("Expected status 409 after locking, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestLockProposedRequiresProposal(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	leader := createTestUser(t, db, "leader@example.com")
	trip := createFunnelTrip(t, db, leader)

	resp := doRequest(router, "POST", fmt.Sprintf("/trips/%d/lock-proposed", trip.ID), nil, leader)
	if resp.Code != http.StatusConflict {
		t.Errorf("Expected status 409 while collecting, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestListWindowsShowsPhaseAndSupport(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	leader := createTestUser(t, db, "leader@example.com")
	trip := createFunnelTrip(t, db, leader)

	doRequest(router, "POST", fmt.Sprintf("/trips/%d/date-windows", trip.ID),
		CreateWindowRequest{StartDate: "2026-06-01", EndDate: "2026-06-05"}, leader)

	resp := doRequest(router, "GET", fmt.Sprintf("/trips/%d/date-windows", trip.ID), nil, leader)
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var body struct {
		Phase   string           `json:"phase"`
		Windows []WindowResponse `json:"windows"`
	}
	json.Unmarshal(resp.Body.Bytes(), &body)

	if body.Phase != "COLLECTING" {
		t.Errorf("Expected phase COLLECTING, got %s", body.Phase)
	}
	if len(body.Windows) != 1 || body.Windows[0].SupportCount != 1 {
		t.Errorf("Expected 1 window with 1 support, got %+v", body.Windows)
	}
}
