// Package scheduler runs the periodic premium maintenance jobs: normalizing
// lapsed guild activations and reminding users whose premium window is about
// to end.
package scheduler

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/aurabot/dashboard-api/databases"
	templates "github.com/aurabot/dashboard-api/templates/html"
)

// reminderWindow is how far ahead of expiry the reminder email goes out
const reminderWindow = 3 * 24 * time.Hour

// Scheduler handles periodic background jobs for premium maintenance
type Scheduler struct {
	cron        *cron.Cron
	GDB         databases.GuildDatabase
	UDB         databases.UserDatabase
	LockDB      databases.SchedulerLockDatabase
	sendgridKey string
	instanceID  string
}

// NewScheduler creates a new scheduler instance
func NewScheduler(
	gDB databases.GuildDatabase,
	uDB databases.UserDatabase,
	lockDB databases.SchedulerLockDatabase,
	sendgridKey string,
) *Scheduler {
	// Generate a unique instance ID for this pod
	instanceID := os.Getenv("DYNO") // Heroku sets this to "web.1", "web.2", etc.
	if instanceID == "" {
		instanceID = fmt.Sprintf("instance-%d", time.Now().UnixNano())
	}

	return &Scheduler{
		cron:        cron.New(cron.WithLocation(time.UTC)),
		GDB:         gDB,
		UDB:         uDB,
		LockDB:      lockDB,
		sendgridKey: sendgridKey,
		instanceID:  instanceID,
	}
}

// Start begins the scheduler with all registered jobs
func (s *Scheduler) Start() {
	// Normalize lapsed guild activations daily at 3 AM UTC
	_, err := s.cron.AddFunc("0 3 * * *", s.sweepExpiredGuilds)
	if err != nil {
		zap.S().Errorw("failed to register guild expiry sweep", "error", err)
	}

	// Send premium expiry reminder emails daily at 9 AM UTC
	_, err = s.cron.AddFunc("0 9 * * *", s.sendExpiryReminders)
	if err != nil {
		zap.S().Errorw("failed to register expiry reminder job", "error", err)
	}

	s.cron.Start()
	zap.S().Info("Premium scheduler started")
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	zap.S().Info("Premium scheduler stopped")
}

// sweepExpiredGuilds flips the active flag on guilds whose premium window
// lapsed. Readers never trust the raw flag (they go through the effective
// premium predicate), this sweep only keeps the stored state tidy for
// listings and stats.
func (s *Scheduler) sweepExpiredGuilds() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	acquired, err := s.LockDB.TryAcquireLock(ctx, "guild_expiry_sweep", s.instanceID, 10*time.Minute)
	if err != nil {
		zap.S().Errorw("failed to acquire lock for guild expiry sweep", "error", err)
		return
	}
	if !acquired {
		zap.S().Debug("Guild expiry sweep already running on another instance, skipping")
		return
	}
	defer s.LockDB.ReleaseLock(ctx, "guild_expiry_sweep", s.instanceID)

	now := time.Now()
	zap.S().Infow("Running guild expiry sweep", "instance", s.instanceID)

	res, err := s.GDB.UpdateMany(ctx,
		bson.M{
			"premium.active":    true,
			"premium.expiresAt": bson.M{"$lte": now},
		},
		bson.M{"$set": bson.M{"premium.active": false, "updatedAt": now}},
	)
	if err != nil {
		zap.S().Errorw("failed to sweep expired guilds", "error", err)
		return
	}

	zap.S().Infow("Guild expiry sweep complete", "expired", res.ModifiedCount)
}

// sendExpiryReminders emails users whose premium window ends within the
// reminder window. The reminder marker on the premium sub-document keeps
// this to one email per window.
func (s *Scheduler) sendExpiryReminders() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	acquired, err := s.LockDB.TryAcquireLock(ctx, "expiry_reminder_job", s.instanceID, 10*time.Minute)
	if err != nil {
		zap.S().Errorw("failed to acquire lock for expiry reminder job", "error", err)
		return
	}
	if !acquired {
		zap.S().Debug("Expiry reminder job already running on another instance, skipping")
		return
	}
	defer s.LockDB.ReleaseLock(ctx, "expiry_reminder_job", s.instanceID)

	now := time.Now()
	zap.S().Infow("Running premium expiry reminder job", "instance", s.instanceID)

	users, err := s.UDB.Find(ctx, bson.M{
		"premium.expiresAt": bson.M{
			"$gt": now,
			"$lt": now.Add(reminderWindow),
		},
		"premium.expiryReminderSentAt": nil,
		"email":                        bson.M{"$nin": []interface{}{nil, ""}},
	})
	if err != nil {
		zap.S().Errorw("failed to find users needing expiry reminder", "error", err)
		return
	}

	sent := 0
	for _, user := range users {
		if err := s.sendReminderEmail(user.Email, user.Username, *user.Premium.ExpiresAt); err != nil {
			zap.S().Errorw("failed to send expiry reminder email", "error", err, "discordId", user.DiscordID)
			continue
		}
		_, err := s.UDB.UpdateOne(ctx,
			bson.M{"discordId": user.DiscordID},
			bson.M{"$set": bson.M{"premium.expiryReminderSentAt": now}},
		)
		if err != nil {
			zap.S().Warnw("failed to mark expiry reminder as sent", "error", err, "discordId", user.DiscordID)
		}
		sent++
	}

	zap.S().Infow("Premium expiry reminder job complete", "remindersSent", sent)
}

func (s *Scheduler) sendReminderEmail(toEmail, toName string, expiresAt time.Time) error {
	subject := "Your Aura premium is about to expire"
	body := fmt.Sprintf(
		"Hey %s,\n\nYour Aura premium window ends on %s. Redeem a code or grab a slot bundle from the dashboard to keep your servers boosted.\n\nThe Aura Team",
		toName, expiresAt.Format("January 2, 2006"),
	)

	from := mail.NewEmail("Aura Bot", "no-reply@aurabot.app")
	to := mail.NewEmail(toName, toEmail)
	message := mail.NewSingleEmail(from, subject, to, body, templates.RenderGenericEmail(subject, body))
	client := sendgrid.NewSendClient(s.sendgridKey)
	response, err := client.Send(message)
	if err != nil {
		return err
	}
	if response.StatusCode >= 400 {
		zap.S().Errorw("sendgrid returned error status", "status", response.StatusCode, "body", response.Body)
	}
	return nil
}
