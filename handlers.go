package main

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"time"

	"fiado/models"
	"fiado/pkg/ledger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupRoutes(r *gin.Engine) {
	r.GET("/login", loginEntryHandler)
	r.POST("/login", loginHandler)
	r.POST("/register", registerHandler)
	r.POST("/refresh", refreshHandler)
	r.POST("/revoke_refresh", revokeRefreshHandler)

	authGroup := r.Group("")
	authGroup.Use(authRequired())
	authGroup.GET("/me", meHandler)
	authGroup.GET("/clients", listClientsHandler)
	authGroup.POST("/clients", createClientHandler)
	authGroup.GET("/clients/:id", getClientHandler)
	authGroup.DELETE("/clients/:id", adminRequired(), deleteClientHandler)
	authGroup.POST("/clients/:id/debts", addDebtHandler)
	authGroup.POST("/clients/:id/payments", addPaymentHandler)
	authGroup.POST("/cash/withdrawals", cashWithdrawalHandler)
	authGroup.POST("/cash/incomes", adminRequired(), cashIncomeHandler)
	authGroup.GET("/cash/drawer", cashDrawerHandler)
	authGroup.GET("/movements", movementsHandler)
}

// authRequired gates every ledger operation behind a valid session. Anything
// short of a valid token sends the caller to the login entry point instead
// of performing the operation.
func authRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || len(authHeader) < 8 || authHeader[:7] != "Bearer " {
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}
		tokenString := authHeader[7:]
		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrInvalidKeyType
			}
			return jwtSecret, nil
		})
		if err != nil || !token.Valid {
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}
		username, _ := claims["username"].(string)
		role, _ := claims["role"].(string)
		c.Set("username", username)
		if role != "" {
			c.Set("role", role)
		}
		c.Next()
	}
}

// adminRequired rejects non-administrator sessions. Must run after
// authRequired. The role is resolved against the store, not the token claim,
// so a demotion takes effect before the token expires.
func adminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := getUserFromContext(c)
		if !ok {
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}
		if !IsAdmin(user) {
			c.JSON(http.StatusForbidden, gin.H{"error": "administrator role required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// getUserFromContext fetches the currently authenticated user using the username set by authRequired
func getUserFromContext(c *gin.Context) (*models.User, bool) {
	unameVal, _ := c.Get("username")
	if unameVal == nil {
		return nil, false
	}
	uname := unameVal.(string)
	var user models.User
	if err := db.Where("username = ?", uname).First(&user).Error; err != nil {
		return nil, false
	}
	return &user, true
}

// respondErr maps the error taxonomy to HTTP: validation 400, not-found 404,
// anything else is a store failure.
func respondErr(c *gin.Context, err error) {
	switch {
	case ledger.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ledger.ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "operation failed"})
	}
}

// findClient resolves a client id, mapping missing rows to ErrNotFound.
func findClient(id string) (*models.Client, error) {
	var client models.Client
	if err := db.First(&client, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ledger.ErrNotFound
		}
		return nil, err
	}
	return &client, nil
}

// parseDay parses a YYYY-MM-DD form date.
func parseDay(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, ledger.Invalid("date", "expected YYYY-MM-DD")
	}
	return t, nil
}

func loginEntryHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "POST credentials to /login"})
}

func meHandler(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		c.Redirect(http.StatusFound, "/login")
		return
	}
	role, _ := c.Get("role")
	c.JSON(http.StatusOK, gin.H{"username": user.Username, "role": role})
}

func registerHandler(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := RegisterUser(req.Username, req.Password); err != nil {
		switch {
		case errors.Is(err, ledger.ErrDuplicate):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			respondErr(c, err)
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user registered successfully"})
}

func loginHandler(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err := Authenticate(req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	// Resolve role name from RoleID (we only store role_id).
	roleName := ""
	if user.RoleID != nil {
		var r models.Role
		if err := db.First(&r, *user.RoleID).Error; err == nil {
			roleName = r.Name
		}
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": user.Username,
		"role":     roleName,
		"exp":      time.Now().Add(time.Hour * 24).Unix(),
	})
	tokenString, err := token.SignedString(jwtSecret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}
	refreshToken, err := createAndStoreRefreshToken(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create refresh token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "login successful", "token": tokenString, "refresh_token": refreshToken})
}

// createAndStoreRefreshToken generates a random refresh token, stores its hash with expiry and returns the raw token string
func createAndStoreRefreshToken(userID uint) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	token := hex.EncodeToString(b)
	// hash for storage
	h := sha256.Sum256([]byte(token))
	th := hex.EncodeToString(h[:])
	rt := models.RefreshToken{UserID: userID, TokenHash: th, ExpiresAt: time.Now().Add(30 * 24 * time.Hour)}
	if err := db.Create(&rt).Error; err != nil {
		return "", err
	}
	return token, nil
}

func findRefreshTokenByRaw(token string) (*models.RefreshToken, error) {
	h := sha256.Sum256([]byte(token))
	th := hex.EncodeToString(h[:])
	var rt models.RefreshToken
	if err := db.Where("token_hash = ?", th).First(&rt).Error; err != nil {
		return nil, err
	}
	return &rt, nil
}

// refreshHandler exchanges a refresh token for a new access token and rotates the refresh token
func refreshHandler(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rt, err := findRefreshTokenByRaw(req.RefreshToken)
	if err != nil || rt.Revoked || time.Now().After(rt.ExpiresAt) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired refresh token"})
		return
	}
	var user models.User
	if err := db.First(&user, rt.UserID).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	roleName := ""
	if user.RoleID != nil {
		var r models.Role
		if err := db.First(&r, *user.RoleID).Error; err == nil {
			roleName = r.Name
		}
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": user.Username,
		"role":     roleName,
		"exp":      time.Now().Add(15 * time.Minute).Unix(),
	})
	tokenString, err := token.SignedString(jwtSecret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}
	// rotate refresh token: revoke existing and create new one
	db.Model(&models.RefreshToken{}).Where("id = ?", rt.ID).Update("revoked", true)
	newRT, err := createAndStoreRefreshToken(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to rotate refresh token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": tokenString, "refresh_token": newRT})
}

// revokeRefreshHandler revokes a given refresh token (useful on logout)
func revokeRefreshHandler(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rt, err := findRefreshTokenByRaw(req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "refresh token not found"})
		return
	}
	rt.Revoked = true
	if err := db.Save(rt).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to revoke token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "refresh token revoked"})
}

// listClientsHandler returns every client with its computed balance.
func listClientsHandler(c *gin.Context) {
	var clients []models.Client
	if err := db.Preload("Debts").Preload("Payments").Order("name").Find(&clients).Error; err != nil {
		respondErr(c, err)
		return
	}
	out := make([]gin.H, 0, len(clients))
	for _, cl := range clients {
		out = append(out, gin.H{
			"id":       cl.ID,
			"name":     cl.Name,
			"document": cl.Document,
			"balance":  ledger.ClientBalance(cl.Debts, cl.Payments),
		})
	}
	c.JSON(http.StatusOK, out)
}

// createClientHandler creates a client and its create_client audit entry in
// one transaction.
func createClientHandler(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		c.Redirect(http.StatusFound, "/login")
		return
	}
	var req struct {
		Name     string `json:"name" binding:"required"`
		Document string `json:"document" binding:"required"`
		Address  string `json:"address"`
		Phone    string `json:"phone"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	// pre-check duplicate document (optimistic; unique index backstops races)
	var existing models.Client
	if err := db.Where("document = ?", req.Document).First(&existing).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "document already registered"})
		return
	}
	client := models.Client{Name: req.Name, Document: req.Document, Address: req.Address, Phone: req.Phone}
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&client).Error; err != nil {
			return err
		}
		_, err := ledger.Record(tx, &user.ID, models.ActionCreateClient, ledger.RecordOpts{
			ClientID:    &client.ID,
			Description: client.Name,
		})
		return err
	})
	if err != nil {
		if isUniqueConstraintError(err) {
			c.JSON(http.StatusConflict, gin.H{"error": "document already registered"})
			return
		}
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": client.ID})
}

// getClientHandler returns one client with its ledger and balance.
func getClientHandler(c *gin.Context) {
	var client models.Client
	if err := db.Preload("Debts").Preload("Payments").First(&client, c.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = ledger.ErrNotFound
		}
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"client":  client,
		"balance": ledger.ClientBalance(client.Debts, client.Payments),
	})
}

// deleteClientHandler removes a client; debts, payments and audit entries go
// with it via FK cascade.
func deleteClientHandler(c *gin.Context) {
	client, err := findClient(c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	if err := db.Delete(client).Error; err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "client deleted"})
}

// addDebtHandler appends an immutable debt plus its add_debt audit entry.
func addDebtHandler(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		c.Redirect(http.StatusFound, "/login")
		return
	}
	client, err := findClient(c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	var req struct {
		Date        string          `json:"date"`
		Amount      decimal.Decimal `json:"amount" binding:"required"`
		Description string          `json:"description" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Amount.IsNegative() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount: must not be negative"})
		return
	}
	day := time.Now()
	if req.Date != "" {
		var err error
		if day, err = parseDay(req.Date); err != nil {
			respondErr(c, err)
			return
		}
	}
	debt := models.Debt{ClientID: client.ID, Date: day, Amount: req.Amount, Description: req.Description}
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&debt).Error; err != nil {
			return err
		}
		_, err := ledger.Record(tx, &user.ID, models.ActionAddDebt, ledger.RecordOpts{
			ClientID:    &client.ID,
			Amount:      &debt.Amount,
			Description: debt.Description,
		})
		return err
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": debt.ID})
}

// addPaymentHandler appends a payment plus its add_payment audit entry.
func addPaymentHandler(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		c.Redirect(http.StatusFound, "/login")
		return
	}
	client, err := findClient(c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	var req struct {
		Date   string          `json:"date"`
		Amount decimal.Decimal `json:"amount" binding:"required"`
		Method string          `json:"method" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Amount.IsNegative() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount: must not be negative"})
		return
	}
	if !models.ValidPaymentMethod(req.Method) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "method: must be cash, transfer or other"})
		return
	}
	day := time.Now()
	if req.Date != "" {
		var err error
		if day, err = parseDay(req.Date); err != nil {
			respondErr(c, err)
			return
		}
	}
	payment := models.Payment{ClientID: client.ID, Date: day, Amount: req.Amount, Method: req.Method}
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}
		_, err := ledger.Record(tx, &user.ID, models.ActionAddPayment, ledger.RecordOpts{
			ClientID: &client.ID,
			Amount:   &payment.Amount,
		})
		return err
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": payment.ID})
}

// cashWithdrawalHandler records a drawer withdrawal under the acting user.
func cashWithdrawalHandler(c *gin.Context) {
	recordCashMovement(c, models.CashWithdrawal, models.ActionCashWithdrawal)
}

// cashIncomeHandler records a manual drawer income. Admin only (route-level).
func cashIncomeHandler(c *gin.Context) {
	recordCashMovement(c, models.CashIncome, models.ActionCashIncome)
}

func recordCashMovement(c *gin.Context, kind, action string) {
	user, ok := getUserFromContext(c)
	if !ok {
		c.Redirect(http.StatusFound, "/login")
		return
	}
	var req struct {
		Amount      decimal.Decimal `json:"amount" binding:"required"`
		Description string          `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Amount.IsNegative() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount: must not be negative"})
		return
	}
	movement := models.CashMovement{UserID: user.ID, Kind: kind, Amount: req.Amount, Description: req.Description}
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&movement).Error; err != nil {
			return err
		}
		_, err := ledger.Record(tx, &user.ID, action, ledger.RecordOpts{
			Amount:      &movement.Amount,
			Description: movement.Description,
		})
		return err
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": movement.ID})
}

// cashDrawerHandler returns the reconciled cash total for one day
// (?date=YYYY-MM-DD, default today).
func cashDrawerHandler(c *gin.Context) {
	day := time.Now()
	if s := c.Query("date"); s != "" {
		var err error
		if day, err = parseDay(s); err != nil {
			respondErr(c, err)
			return
		}
	}
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	var payments []models.Payment
	if err := db.Where("date >= ? AND date < ?", dayStart, dayEnd).Find(&payments).Error; err != nil {
		respondErr(c, err)
		return
	}
	var movements []models.CashMovement
	if err := db.Where("created_at >= ? AND created_at < ?", dayStart, dayEnd).Find(&movements).Error; err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"date":  dayStart.Format("2006-01-02"),
		"total": ledger.CashDrawerTotal(payments, movements, dayStart),
	})
}

// movementsHandler returns the filtered audit trail, most recent first,
// with debt/payment totals over the filtered set.
func movementsHandler(c *gin.Context) {
	var filter ledger.MovementFilter
	if s := c.Query("start"); s != "" {
		t, err := parseDay(s)
		if err != nil {
			respondErr(c, err)
			return
		}
		filter.From = &t
	}
	if s := c.Query("end"); s != "" {
		t, err := parseDay(s)
		if err != nil {
			respondErr(c, err)
			return
		}
		// inclusive end-of-day bound
		end := t.AddDate(0, 0, 1).Add(-time.Nanosecond)
		filter.To = &end
	}
	if s := c.Query("client_id"); s != "" {
		client, err := findClient(s)
		if err != nil {
			respondErr(c, err)
			return
		}
		filter.ClientID = &client.ID
	}
	entries, err := ledger.QueryMovements(db, filter)
	if err != nil {
		respondErr(c, err)
		return
	}
	totalDebt, totalPayment := ledger.MovementTotals(entries)
	c.JSON(http.StatusOK, gin.H{
		"movements":     entries,
		"total_debt":    totalDebt,
		"total_payment": totalPayment,
	})
}
