package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/mmdatafocus/fittrack_backend/config"
	"github.com/mmdatafocus/fittrack_backend/middlewares"
	"github.com/mmdatafocus/fittrack_backend/models"
	"github.com/mmdatafocus/fittrack_backend/services"
	"github.com/mmdatafocus/fittrack_backend/store"
	"github.com/mmdatafocus/fittrack_backend/utils"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const defaultPort = "8080"

// activeStore is set once dependencies are connected; the readiness gate
// returns 503 until then.
var activeStore atomic.Pointer[store.Store]

func getStore() store.Store {
	p := activeStore.Load()
	if p == nil {
		return nil
	}
	return *p
}

// Define a struct to represent the rate limiter.
type RateLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

func getRedisClient(redisAddress string) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: redisAddress,
	})
	return client
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, utils.ErrorRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, utils.ErrorNotAuthorized):
		return http.StatusForbidden
	case errors.Is(err, utils.ErrorConflict):
		return http.StatusConflict
	case errors.Is(err, utils.ErrorIndexUnavailable),
		errors.Is(err, utils.ErrorUpstreamUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadRequest
	}
}

func abortWithError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": utils.ProcessValidationErrors(err)})
		return
	}
	c.JSON(statusForError(err), gin.H{"error": err.Error()})
}

func queryInt(c *gin.Context, name string, def int) int {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}

// childLinkInput is one child row in a create-content payload; extra keys
// beyond the reference are stored on the link as-is.
type childLinkInput map[string]any

// registerContentRoutes wires the list/get/create/delete surface for one
// content variant. Both routines and diets go through the same handlers;
// only the join wiring differs.
func registerContentRoutes(r *gin.Engine, base, childPayloadKey, childRefField string, spec services.JoinSpec) {
	r.GET(base, func(c *gin.Context) {
		userId, ok := middlewares.RequireUser(c)
		if !ok {
			return
		}
		skip := queryInt(c, "skip", 0)
		limit := queryInt(c, "limit", 20)
		views, err := services.ListOwnedAndPublicWithChildren(c.Request.Context(), getStore(), spec, "creator_id", userId, skip, limit)
		if err != nil {
			abortWithError(c, err)
			return
		}
		out := make([]map[string]any, 0, len(views))
		for _, v := range views {
			out = append(out, v.Map(spec))
		}
		c.JSON(http.StatusOK, out)
	})

	r.GET(base+"/:id", func(c *gin.Context) {
		if _, ok := middlewares.RequireUser(c); !ok {
			return
		}
		view, err := services.FetchWithChildren(c.Request.Context(), getStore(), spec, c.Param("id"))
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, view.Map(spec))
	})

	r.POST(base, func(c *gin.Context) {
		userId, ok := middlewares.RequireUser(c)
		if !ok {
			return
		}
		var raw map[string]any
		if err := c.ShouldBindJSON(&raw); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		name, _ := raw["name"].(string)
		if name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
			return
		}

		var children []childLinkInput
		if rawChildren, ok := raw[childPayloadKey].([]any); ok {
			for _, rc := range rawChildren {
				if m, ok := rc.(map[string]any); ok {
					children = append(children, m)
				}
			}
		}
		data := make(map[string]any, len(raw))
		for k, v := range raw {
			if k == childPayloadKey || k == "id" {
				continue
			}
			data[k] = v
		}

		ctx := c.Request.Context()
		st := getStore()
		key, err := services.CreateParent(ctx, st, spec.ParentCollection, userId, data)
		if err != nil {
			abortWithError(c, err)
			return
		}
		if len(children) > 0 {
			writes := make([]store.Write, 0, len(children))
			for _, child := range children {
				linkData := make(map[string]any, len(child)+1)
				for k, v := range child {
					linkData[k] = v
				}
				if ref, _ := linkData[childRefField].(string); ref == "" {
					c.JSON(http.StatusBadRequest, gin.H{"error": childRefField + " is required on every child"})
					return
				}
				linkData[spec.ParentRefField] = key
				writes = append(writes, store.Write{Kind: store.WriteSet, Collection: spec.ChildCollection, Data: linkData})
			}
			if err := st.BatchWrite(ctx, writes); err != nil {
				abortWithError(c, err)
				return
			}
		}

		view, err := services.FetchWithChildren(ctx, st, spec, key)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusCreated, view.Map(spec))
	})

	r.DELETE(base+"/:id", func(c *gin.Context) {
		userId, ok := middlewares.RequireUser(c)
		if !ok {
			return
		}
		if err := services.DeleteParentCascade(c.Request.Context(), getStore(), spec, userId, c.Param("id")); err != nil {
			abortWithError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})
}

func registerNutritionRoutes(r *gin.Engine) {
	today := func() string { return time.Now().UTC().Format("2006-01-02") }
	parseDate := func(c *gin.Context) (string, bool) {
		date := c.Query("date")
		if date == "" {
			return today(), true
		}
		if _, err := time.Parse("2006-01-02", date); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
			return "", false
		}
		return date, true
	}

	r.GET("/nutrition/daily", func(c *gin.Context) {
		userId, ok := middlewares.RequireUser(c)
		if !ok {
			return
		}
		date, ok := parseDate(c)
		if !ok {
			return
		}
		stats, err := services.GetDailyStats(c.Request.Context(), getStore(), userId, date)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, stats)
	})

	r.POST("/nutrition/log", func(c *gin.Context) {
		userId, ok := middlewares.RequireUser(c)
		if !ok {
			return
		}
		date, ok := parseDate(c)
		if !ok {
			return
		}
		var entry models.NutritionLogEntry
		if err := c.ShouldBindJSON(&entry); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		stats, err := services.AppendLogEntry(c.Request.Context(), getStore(), userId, date, entry)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, stats)
	})

	r.PUT("/nutrition/goal", func(c *gin.Context) {
		userId, ok := middlewares.RequireUser(c)
		if !ok {
			return
		}
		var req struct {
			GoalCalories int64 `json:"goal_calories" binding:"required,gt=0"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		if err := services.UpdateCalorieGoal(c.Request.Context(), getStore(), userId, req.GoalCalories); err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"goal_calories": req.GoalCalories})
	})
}

func registerSocialRoutes(r *gin.Engine) {
	r.GET("/feed", func(c *gin.Context) {
		if _, ok := middlewares.RequireUser(c); !ok {
			return
		}
		posts, err := services.GetFeed(c.Request.Context(), getStore(), queryInt(c, "skip", 0), queryInt(c, "limit", 20))
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, posts)
	})

	r.POST("/feed", func(c *gin.Context) {
		userId, ok := middlewares.RequireUser(c)
		if !ok {
			return
		}
		var in models.PostInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		key, err := services.SharePost(c.Request.Context(), getStore(), userId, in)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"id": key})
	})

	r.POST("/feed/:id/like", func(c *gin.Context) {
		userId, ok := middlewares.RequireUser(c)
		if !ok {
			return
		}
		liked, likes, err := services.ToggleLike(c.Request.Context(), getStore(), userId, c.Param("id"))
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"liked": liked, "likes": likes})
	})

	r.POST("/content/rate", func(c *gin.Context) {
		userId, ok := middlewares.RequireUser(c)
		if !ok {
			return
		}
		var in models.RatingInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		summary, err := services.RateContent(c.Request.Context(), getStore(), userId, in)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, summary)
	})

	r.POST("/content/import", func(c *gin.Context) {
		userId, ok := middlewares.RequireUser(c)
		if !ok {
			return
		}
		var ref models.ContentRef
		if err := c.ShouldBindJSON(&ref); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		key, err := services.ImportContent(c.Request.Context(), getStore(), userId, ref)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"id": key})
	})
}

func registerTrackingRoutes(r *gin.Engine) {
	r.GET("/workouts", func(c *gin.Context) {
		userId, ok := middlewares.RequireUser(c)
		if !ok {
			return
		}
		workouts, err := services.ListScheduledByUser(c.Request.Context(), getStore(), userId, queryInt(c, "limit", 0))
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, workouts)
	})

	r.POST("/workouts", func(c *gin.Context) {
		userId, ok := middlewares.RequireUser(c)
		if !ok {
			return
		}
		var req struct {
			RoutineId     string    `json:"routine_id"`
			ScheduledDate time.Time `json:"scheduled_date" binding:"required"`
			Note          string    `json:"note"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		w, err := services.ScheduleWorkout(c.Request.Context(), getStore(), userId, req.RoutineId, req.ScheduledDate, req.Note)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusCreated, w)
	})

	r.POST("/workouts/complete", func(c *gin.Context) {
		userId, ok := middlewares.RequireUser(c)
		if !ok {
			return
		}
		var in models.WorkoutSessionLog
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		resp, err := services.CompleteSession(c.Request.Context(), getStore(), userId, in)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	})

	r.POST("/workouts/:id/complete", func(c *gin.Context) {
		userId, ok := middlewares.RequireUser(c)
		if !ok {
			return
		}
		var in models.WorkoutSessionLog
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		resp, err := services.CompleteScheduled(c.Request.Context(), getStore(), userId, c.Param("id"), in)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	})

	r.GET("/progression", func(c *gin.Context) {
		userId, ok := middlewares.RequireUser(c)
		if !ok {
			return
		}
		user, err := getStore().Get(c.Request.Context(), models.CollectionUsers, userId)
		if err != nil {
			abortWithError(c, err)
			return
		}
		var u models.User
		if err := utils.DecodeDocument(user.Data, &u); err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, services.ProgressionOf(u.Xp))
	})
}

// registerCatalogRoutes serves the exercise and food catalogs. Detail reads
// and id-list reads go through the request-scoped dataloaders, so repeated
// keys within one request collapse into a single batched store call.
func registerCatalogRoutes(r *gin.Engine) {
	r.GET("/exercises", func(c *gin.Context) {
		if raw := c.Query("ids"); raw != "" {
			items, errs := middlewares.GetExercises(c.Request.Context(), splitAndTrim(raw))
			for _, err := range errs {
				if err != nil {
					abortWithError(c, err)
					return
				}
			}
			c.JSON(http.StatusOK, items)
			return
		}
		listCatalog(c, models.CollectionExercises, func(doc store.Document) (any, error) {
			var e models.Exercise
			if err := utils.DecodeDocument(doc.Data, &e); err != nil {
				return nil, err
			}
			e.ID = doc.Key
			return &e, nil
		})
	})

	r.GET("/exercises/:id", func(c *gin.Context) {
		ex, err := middlewares.GetExercise(c.Request.Context(), c.Param("id"))
		if err != nil {
			abortWithError(c, err)
			return
		}
		if ex == nil {
			abortWithError(c, utils.ErrorRecordNotFound)
			return
		}
		c.JSON(http.StatusOK, ex)
	})

	r.GET("/foods", func(c *gin.Context) {
		if raw := c.Query("ids"); raw != "" {
			items, errs := middlewares.GetFoods(c.Request.Context(), splitAndTrim(raw))
			for _, err := range errs {
				if err != nil {
					abortWithError(c, err)
					return
				}
			}
			c.JSON(http.StatusOK, items)
			return
		}
		listCatalog(c, models.CollectionFoods, func(doc store.Document) (any, error) {
			var f models.Food
			if err := utils.DecodeDocument(doc.Data, &f); err != nil {
				return nil, err
			}
			f.ID = doc.Key
			return &f, nil
		})
	})

	r.GET("/foods/:id", func(c *gin.Context) {
		food, err := middlewares.GetFood(c.Request.Context(), c.Param("id"))
		if err != nil {
			abortWithError(c, err)
			return
		}
		if food == nil {
			abortWithError(c, utils.ErrorRecordNotFound)
			return
		}
		c.JSON(http.StatusOK, food)
	})
}

// listCatalog returns a whole catalog collection ordered by name. A single
// field order never needs a composite index.
func listCatalog(c *gin.Context, collection string, decode func(store.Document) (any, error)) {
	docs, err := getStore().Query(c.Request.Context(), collection, nil, &store.Order{Field: "name"}, 0)
	if err != nil {
		abortWithError(c, err)
		return
	}
	out := make([]any, 0, len(docs))
	for _, doc := range docs {
		item, err := decode(doc)
		if err != nil {
			abortWithError(c, err)
			return
		}
		out = append(out, item)
	}
	c.JSON(http.StatusOK, out)
}

func customNotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
}

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		// Cloud Run standard env var.
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	// Shutdown coordination.
	// Cloud Run sends SIGTERM on revision shutdown; handle it for graceful drain.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Start the HTTP server ASAP so Cloud Run considers the revision healthy.
	// Until the store is ready, app endpoints return 503.
	r := gin.New()
	r.Use(middlewares.CorrelationMiddleware())
	r.Use(func(c *gin.Context) {
		// Always allow Cloud Run startup probe.
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		if getStore() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	// Production-safe CORS:
	// - In production, require explicit allowlist via CORS_ALLOWED_ORIGINS (comma-separated).
	// - In non-production, allow all (developer convenience).
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			// Safer default: deny all if not configured in production.
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("token", "Origin", "Content-Type", "Authorization")
	corsConfig.AddExposeHeaders("Content-Length")
	corsConfig.AllowCredentials = true

	r.Use(cors.New(corsConfig))

	// Optional rate limiting (recommended for production).
	// Env:
	// - RATE_LIMIT_ENABLED=true
	// - RATE_LIMIT_WINDOW_SECONDS=60
	// - RATE_LIMIT_MAX_REQUESTS=600
	if strings.EqualFold(strings.TrimSpace(os.Getenv("RATE_LIMIT_ENABLED")), "true") {
		client := getRedisClient(os.Getenv("REDIS_ADDRESS"))
		limit := int64(600)
		if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_MAX_REQUESTS")); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
				limit = n
			}
		}
		windowSec := int64(60)
		if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_WINDOW_SECONDS")); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
				windowSec = n
			}
		}
		rateLimiter := NewRateLimiter(client, limit, time.Duration(windowSec)*time.Second)
		r.Use(rateLimiter.RateLimitMiddleware)
	}

	r.Use(middlewares.AuthMiddleware())
	// The store is connected after the port opens, so the loader middleware
	// resolves it per request instead of capturing it at startup.
	r.Use(func(c *gin.Context) {
		if st := getStore(); st != nil {
			middlewares.LoaderMiddleware(st)(c)
			return
		}
		c.Next()
	})
	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())

	registerContentRoutes(r, "/routines", "exercises", "exercise_id", services.RoutineExercisesJoin)
	registerContentRoutes(r, "/diets", "foods", "food_id", services.DietFoodsJoin)
	registerNutritionRoutes(r)
	registerSocialRoutes(r)
	registerTrackingRoutes(r)
	registerCatalogRoutes(r)
	r.NoRoute(customNotFoundHandler)

	// Start listening immediately (Cloud Run startup probe is TCP based).
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		// ListenAndServe returns http.ErrServerClosed on graceful shutdown.
		serverErrCh <- srv.ListenAndServe()
	}()

	// Connect dependencies after the port is open.
	var st store.Store
	if strings.EqualFold(strings.TrimSpace(os.Getenv("STORE_DRIVER")), "memory") {
		logger.WithFields(logrus.Fields{"field": "store"}).Warn("STORE_DRIVER=memory; all data is process-local")
		st = store.NewMemoryStore()
	} else {
		config.ConnectFirestoreWithRetry()
		st = store.NewFirestoreStore(config.GetFirestore())
	}
	config.ConnectRedisWithRetry()
	activeStore.Store(&st)

	logger.WithFields(logrus.Fields{
		"info": "Connection Established",
	}).Info("listening on http://localhost:", port, "/")
	log.Println("Server started successfully")

	// Block until shutdown or server error.
	select {
	case <-sigCtx.Done():
		// graceful shutdown below
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	// Drain HTTP requests.
	shutdownTimeout := 30 * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	// Close Redis (best-effort).
	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}

// customErrorLogger is a custom Gin middleware that logs only errors
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Only log when there are errors
		if len(c.Errors) > 0 {
			entry := logrus.NewEntry(logger)
			if cid, ok := utils.GetCorrelationIdFromContext(c.Request.Context()); ok {
				entry = entry.WithField("correlationId", cid)
			}
			entry.Error(c.Errors.String())
		}
	}
}

// Initialize a new RateLimiter instance.
func NewRateLimiter(client *redis.Client, limit int64, window time.Duration) *RateLimiter {
	return &RateLimiter{
		client: client,
		limit:  limit,
		window: window,
	}
}

// Middleware function to check rate limits.
func (rl *RateLimiter) RateLimitMiddleware(c *gin.Context) {
	// Get the IP address or user identifier from the request.
	key := c.ClientIP() // Assuming IP-based rate limiting

	// Check if the key exists in Redis.
	exists, err := rl.client.Exists(c.Request.Context(), key).Result()
	if err != nil {
		c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	// If the key doesn't exist, create it and set expiry.
	if exists == 0 {
		err := rl.client.Set(c.Request.Context(), key, 1, rl.window).Err()
		if err != nil {
			c.AbortWithError(http.StatusInternalServerError, err)
			return
		}
		c.Next()
		return
	}

	// If the key exists, get the current count.
	count, err := rl.client.Incr(c.Request.Context(), key).Result()
	if err != nil {
		c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	// If the count exceeds the limit, return an error response.
	if count > rl.limit {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error": fmt.Sprintf("Rate limit exceeded. Try again in %d seconds", int(rl.window.Seconds())),
		})
		return
	}

	c.Next()
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
