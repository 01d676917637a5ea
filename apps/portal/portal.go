package portal

import (
	"context"
	"io"
	"log"

	"github.com/pkg/errors"

	"github.com/trezcool/jamii/core"
	"github.com/trezcool/jamii/core/notification"
	"github.com/trezcool/jamii/core/session"
	"github.com/trezcool/jamii/core/user"
	emailsvc "github.com/trezcool/jamii/services/email"
	logsvc "github.com/trezcool/jamii/services/logger"
	metricsvc "github.com/trezcool/jamii/services/metrics"
	"github.com/trezcool/jamii/storage/database"
	inmemdb "github.com/trezcool/jamii/storage/database/inmem"
	sqlxdb "github.com/trezcool/jamii/storage/database/sqlx"
	"github.com/trezcool/jamii/storage/local"
)

type (
	Deps struct {
		Registry user.Registry
		Storage  core.Storage
		Mailer   core.EmailService
		Logger   core.Logger
		Metrics  *metricsvc.Metrics // optional
	}

	// App owns both stores; consumers receive it by reference.
	App struct {
		Conf          *core.Config
		Logger        core.Logger
		Registry      user.Registry
		Session       *session.Store
		Notifications *notification.Store
		Metrics       *metricsvc.Metrics

		storage core.Storage
		db      io.Closer // SQL user registry, if any
	}
)

// New wires the stores together and restores the persisted session.
func New(ctx context.Context, conf *core.Config, deps Deps) (*App, error) {
	if deps.Registry == nil || deps.Storage == nil || deps.Mailer == nil || deps.Logger == nil {
		return nil, errors.New("portal: missing dependencies")
	}

	notes := notification.NewStore(
		notification.WithLogger(deps.Logger),
		notification.WithProfileLink(conf.ProfileEditLink),
	)
	var tokens *user.TokenGenerator
	if conf.SecretKey != "" {
		tokens = user.NewTokenGenerator(conf.SecretKey, conf.PasswordResetTimeout)
	}
	sess := session.NewStore(session.Deps{
		Registry:   deps.Registry,
		Storage:    deps.Storage,
		Mailer:     deps.Mailer,
		Logger:     deps.Logger,
		Tokens:     tokens,
		StorageKey: conf.Storage.Key,
	})

	sess.OnAuthenticated(notes.SeedProfileReminder)

	if m := deps.Metrics; m != nil {
		sess.Subscribe(m.ObserveSession)
		sess.OnAuthenticated(m.SessionStarted)
		sess.OnLogout(m.SessionEnded)
		notes.Subscribe(m.ObserveNotifications)
	}

	app := &App{
		Conf:          conf,
		Logger:        deps.Logger,
		Registry:      deps.Registry,
		Session:       sess,
		Notifications: notes,
		Metrics:       deps.Metrics,
		storage:       deps.Storage,
	}
	if err := sess.Restore(ctx); err != nil {
		// the app still starts, Anonymous
		deps.Logger.Error("restoring session", err)
	}
	return app, nil
}

// Build assembles the production dependencies described by conf, then calls New.
func Build(ctx context.Context, conf *core.Config, std *log.Logger) (*App, error) {
	logger := logsvc.NewRollbarLogger(std, conf)

	storage, err := local.Open(ctx, conf.Storage)
	if err != nil {
		return nil, errors.Wrap(err, "opening storage")
	}

	registry, db, err := openRegistry(ctx, conf.Registry)
	if err != nil {
		_ = storage.Close()
		return nil, err
	}

	app, err := New(ctx, conf, Deps{
		Registry: registry,
		Storage:  storage,
		Mailer:   emailsvc.New(conf, std, logger),
		Logger:   logger,
		Metrics:  metricsvc.New("jamii"),
	})
	if err != nil {
		_ = storage.Close()
		if db != nil {
			_ = db.Close()
		}
		return nil, err
	}
	app.db = db
	return app, nil
}

// openRegistry opens the user registry named by conf and seeds it with the demo accounts when empty.
// db is nil for the in-memory registry.
func openRegistry(ctx context.Context, conf core.RegistryConfig) (reg user.Registry, db io.Closer, err error) {
	switch conf.Driver {
	case "memory", "":
		reg = inmemdb.NewUserRegistry(inmemdb.Open())
	case database.DriverSQLite, database.DriverPostgres:
		sqlDB, err := database.Open(ctx, conf.Driver, conf.DSN)
		if err != nil {
			return nil, nil, errors.Wrap(err, "opening user registry")
		}
		if reg, err = sqlxdb.NewUserRegistry(ctx, sqlDB); err != nil {
			_ = sqlDB.Close()
			return nil, nil, err
		}
		db = sqlDB
	default:
		return nil, nil, errors.Errorf("unknown registry driver %q", conf.Driver)
	}

	users, err := reg.QueryAll(ctx)
	if err == nil && len(users) == 0 {
		err = inmemdb.Seed(ctx, reg)
	}
	if err != nil {
		if db != nil {
			_ = db.Close()
		}
		return nil, nil, errors.Wrap(err, "seeding user registry")
	}
	return reg, db, nil
}

func (a *App) Close() error {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.Logger.Error("closing user registry", err)
		}
	}
	return a.storage.Close()
}
