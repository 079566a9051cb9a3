package stub

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/locker-client/internal/api/dto"
	"github.com/spec-kit/locker-client/internal/domain"
)

const principalKey = "stub_principal"

// handlers implements the stub API surface over the in-memory store.
type handlers struct {
	store  *memoryStore
	tokens *TokenManager
	logger *zap.Logger
}

func detail(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(dto.ErrorResponse{Detail: msg})
}

// Login handles POST /login.
func (h *handlers) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return detail(c, http.StatusBadRequest, "invalid payload")
	}

	u, err := h.store.authenticate(req.Email, req.Password)
	if err != nil {
		return detail(c, http.StatusUnauthorized, "Invalid credentials")
	}

	access, err := h.tokens.GenerateAccessToken(u.ID, u.Role)
	if err != nil {
		return detail(c, http.StatusInternalServerError, "token generation failed")
	}
	refresh, err := h.tokens.GenerateRefreshToken(u.ID)
	if err != nil {
		return detail(c, http.StatusInternalServerError, "token generation failed")
	}

	return c.JSON(dto.AuthResponse{AccessToken: access, RefreshToken: refresh, TokenType: "bearer"})
}

// Signup handles POST /signup.
func (h *handlers) Signup(c *fiber.Ctx) error {
	var req dto.SignupRequest
	if err := c.BodyParser(&req); err != nil {
		return detail(c, http.StatusBadRequest, "invalid payload")
	}
	if req.Name == "" || req.Email == "" || req.Password == "" {
		return detail(c, http.StatusBadRequest, "name, email, password required")
	}

	if _, err := h.store.createUser(req.Name, req.Email, req.Password, domain.RoleUser); err != nil {
		if errors.Is(err, errConflict) {
			return detail(c, http.StatusBadRequest, "Email already registered")
		}
		return detail(c, http.StatusInternalServerError, "signup failed")
	}
	return c.SendStatus(http.StatusOK)
}

// Refresh handles POST /refresh?refresh_token=...; the body is empty.
func (h *handlers) Refresh(c *fiber.Ctx) error {
	refreshToken := c.Query("refresh_token")
	if refreshToken == "" {
		return detail(c, http.StatusUnauthorized, "Invalid token")
	}

	subjectID, err := h.tokens.ParseRefreshToken(refreshToken)
	if err != nil {
		return detail(c, http.StatusUnauthorized, "Invalid token")
	}
	u, ok := h.store.userByID(subjectID)
	if !ok {
		return detail(c, http.StatusUnauthorized, "Invalid token")
	}

	access, err := h.tokens.GenerateAccessToken(u.ID, u.Role)
	if err != nil {
		return detail(c, http.StatusInternalServerError, "token generation failed")
	}
	return c.JSON(dto.RefreshResponse{AccessToken: access})
}

// Me handles GET /me.
func (h *handlers) Me(c *fiber.Ctx) error {
	u := h.principal(c)
	return c.JSON(dto.MeResponse{ID: u.ID, Email: u.Email, Name: u.Name, Role: string(u.Role)})
}

// States handles GET /states.
func (h *handlers) States(c *fiber.Ctx) error {
	states := h.store.listStates()
	out := make([]dto.StateResponse, 0, len(states))
	for _, st := range states {
		out = append(out, stateToDTO(st))
	}
	return c.JSON(out)
}

// Lockers handles GET /lockers.
func (h *handlers) Lockers(c *fiber.Ctx) error {
	lockers := h.store.listLockers()
	out := make([]dto.LockerResponse, 0, len(lockers))
	for _, l := range lockers {
		out = append(out, lockerToDTO(l))
	}
	return c.JSON(out)
}

// CreateLocker handles POST /lockers. Admin only.
func (h *handlers) CreateLocker(c *fiber.Ctx) error {
	var req dto.LockerCreateRequest
	if err := c.BodyParser(&req); err != nil || req.LockerPointID == "" {
		return detail(c, http.StatusBadRequest, "locker_point_id required")
	}
	return c.JSON(lockerToDTO(h.store.createLocker(req.LockerPointID)))
}

// UpdateLocker handles PUT /lockers/:id. Admin only.
func (h *handlers) UpdateLocker(c *fiber.Ctx) error {
	var req dto.LockerUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return detail(c, http.StatusBadRequest, "invalid payload")
	}
	locker, err := h.store.updateLocker(c.Params("id"), req.Name, req.Status)
	if err != nil {
		return detail(c, http.StatusNotFound, "Locker Not Found")
	}
	return c.JSON(lockerToDTO(locker))
}

// DeleteLocker handles DELETE /lockers/:id. Admin only.
func (h *handlers) DeleteLocker(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.store.deleteLocker(id); err != nil {
		return detail(c, http.StatusNotFound, "Locker Not Found")
	}
	return c.JSON(dto.DeleteResponse{ID: id, Detail: "Locker deleted"})
}

// ForceClearLocker handles DELETE /lockers/:id/force-clear. Admin only.
func (h *handlers) ForceClearLocker(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.store.forceClearLocker(id); err != nil {
		return detail(c, http.StatusNotFound, "Locker Not Found")
	}
	return c.JSON(dto.DeleteResponse{ID: id, Detail: "Locker cleared"})
}

// StoreItem handles POST /items.
func (h *handlers) StoreItem(c *fiber.Ctx) error {
	var req dto.ItemCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return detail(c, http.StatusBadRequest, "invalid payload")
	}
	if req.Name == "" || req.LockerID == "" || req.YourEmail == "" {
		return detail(c, http.StatusBadRequest, "name, locker_id, your_email required")
	}

	item, err := h.store.storeItem(domain.Item{
		Name:          req.Name,
		Description:   req.Description,
		LockerID:      req.LockerID,
		SenderEmail:   req.YourEmail,
		ReceiverPhone: req.ReceiverPhoneNumber,
		ReceiverEmail: req.ReceiverEmailID,
	})
	if err != nil {
		return detail(c, http.StatusBadRequest, err.Error())
	}
	return c.JSON(itemToDTO(item))
}

// MyItems handles GET /items.
func (h *handlers) MyItems(c *fiber.Ctx) error {
	u := h.principal(c)
	items := h.store.listItems(u.Email)
	out := make([]dto.ItemResponse, 0, len(items))
	for _, it := range items {
		out = append(out, itemToDTO(it))
	}
	return c.JSON(out)
}

// Transactions handles GET /transactions.
func (h *handlers) Transactions(c *fiber.Ctx) error {
	txs := h.store.listTransactions()
	out := make([]dto.TransactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, dto.TransactionResponse{
			ItemID:      tx.ItemID,
			LockerID:    tx.LockerID,
			TotalAmount: tx.TotalAmount,
			Detail:      tx.Detail,
		})
	}
	return c.JSON(out)
}

// RequestOTP handles POST /lockers/:id/request-otp.
func (h *handlers) RequestOTP(c *fiber.Ctx) error {
	var req dto.OTPRequest
	if err := c.BodyParser(&req); err != nil || req.Contact == "" {
		return detail(c, http.StatusBadRequest, "contact required")
	}

	code, err := h.store.issueOTP(c.Params("id"))
	if err != nil {
		return detail(c, http.StatusBadRequest, "No item awaiting collection in this locker")
	}

	// No SMS or email channel here; the operator reads the code off the log.
	h.logger.Info("otp issued",
		zap.String("locker_id", c.Params("id")),
		zap.String("contact", req.Contact),
		zap.String("code", code),
	)
	return c.JSON(fiber.Map{})
}

// Collect handles POST /lockers/:id/collect.
func (h *handlers) Collect(c *fiber.Ctx) error {
	var req dto.CollectRequest
	if err := c.BodyParser(&req); err != nil || req.OTP == "" {
		return detail(c, http.StatusBadRequest, "otp required")
	}

	result, err := h.store.collect(c.Params("id"), req.OTP)
	if err != nil {
		switch {
		case errors.Is(err, errBadOTP):
			return detail(c, http.StatusUnauthorized, "Invalid OTP")
		case errors.Is(err, errExpiredOTP):
			return detail(c, http.StatusBadRequest, "OTP expired")
		default:
			return detail(c, http.StatusBadRequest, "No item to collect")
		}
	}

	return c.JSON(dto.CollectResponse{
		ItemID:      result.ItemID,
		LockerID:    result.LockerID,
		TotalAmount: result.TotalAmount,
		StoredAt:    result.StoredAt.Format("2006-01-02T15:04:05Z07:00"),
		CollectedAt: result.CollectedAt.Format("2006-01-02T15:04:05Z07:00"),
		Detail:      result.Detail,
	})
}

// requireAuth validates the bearer token and loads the principal.
func (h *handlers) requireAuth(c *fiber.Ctx) error {
	header := c.Get("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return detail(c, http.StatusUnauthorized, "Not authenticated")
	}

	subjectID, _, err := h.tokens.ParseAccessToken(parts[1])
	if err != nil {
		return detail(c, http.StatusUnauthorized, "Could not validate credentials")
	}
	u, ok := h.store.userByID(subjectID)
	if !ok {
		return detail(c, http.StatusUnauthorized, "Could not validate credentials")
	}

	c.Locals(principalKey, u)
	return c.Next()
}

// requireAdmin gates admin-only routes.
func (h *handlers) requireAdmin(c *fiber.Ctx) error {
	if u := h.principal(c); u == nil || u.Role != domain.RoleAdmin {
		return detail(c, http.StatusForbidden, "Admin privileges required")
	}
	return c.Next()
}

func (h *handlers) principal(c *fiber.Ctx) *user {
	u, _ := c.Locals(principalKey).(*user)
	return u
}

func lockerToDTO(l domain.Locker) dto.LockerResponse {
	return dto.LockerResponse{
		ID:              l.ID,
		Name:            l.Name,
		Status:          string(l.Status),
		LockerPointID:   l.LockerPointID,
		LockerPointName: l.LockerPointName,
	}
}

func itemToDTO(it domain.Item) dto.ItemResponse {
	return dto.ItemResponse{
		ID:            it.ID,
		Name:          it.Name,
		Description:   it.Description,
		LockerID:      it.LockerID,
		YourEmail:     it.SenderEmail,
		ReceiverPhone: it.ReceiverPhone,
		ReceiverEmail: it.ReceiverEmail,
		Status:        string(it.Status),
		CreatedAt:     it.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

func stateToDTO(st domain.State) dto.StateResponse {
	out := dto.StateResponse{ID: st.ID, Name: st.Name}
	for _, city := range st.Cities {
		cityDTO := dto.CityResponse{ID: city.ID, Name: city.Name}
		for _, point := range city.LockerPoints {
			pointDTO := dto.LockerPointResponse{ID: point.ID, Name: point.Name, Address: point.Address, CityID: point.CityID}
			for _, locker := range point.Lockers {
				pointDTO.Lockers = append(pointDTO.Lockers, lockerToDTO(locker))
			}
			cityDTO.LockerPoints = append(cityDTO.LockerPoints, pointDTO)
		}
		out.Cities = append(out.Cities, cityDTO)
	}
	return out
}
