// -----------------------------------------------------------------------
// Postgres Connection Layer - dual-store pool management
// The research store holds articles, embeddings and trade intelligence;
// the meta store holds feeds, funds, job executions and operational rows.
// -----------------------------------------------------------------------

package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/ternarybob/arbor"
)

const (
	connectTimeout = 10 * time.Second
	queryTimeout   = 30 * time.Second

	maxOpenConns    = 10
	maxIdleConns    = 5
	connMaxLifetime = 30 * time.Minute
	connMaxIdleTime = 5 * time.Minute
)

// ConnectivityError distinguishes reachability faults from query errors so
// startup can abort with an actionable message instead of retrying blindly.
type ConnectivityError struct {
	Store string
	Cause error
}

func (e *ConnectivityError) Error() string {
	msg := fmt.Sprintf("cannot reach %s database: %v", e.Store, e.Cause)
	if isIPv6Unreachable(e.Cause) {
		msg += " (host resolved to an IPv6 address but this network has no IPv6 route; set a pooler/IPv4 DSN)"
	}
	return msg
}

func (e *ConnectivityError) Unwrap() error { return e.Cause }

func isIPv6Unreachable(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "network is unreachable") && strings.Contains(s, ":")
}

// Stores bundles both pools and every repository.
type Stores struct {
	ResearchDB *sqlx.DB
	MetaDB     *sqlx.DB

	Articles      *ArticleStore
	Relationships *RelationshipStore
	Congress      *CongressStore
	Politicians   *PoliticianStore
	Securities    *SecurityStore
	Social        *SocialStore
	Executions    *JobExecutionStore
	RetryQueue    *RetryQueueStore
	Feeds         *FeedStore
	Funds         *FundStore
	DomainHealth  *DomainHealthStore
}

// Connect opens and verifies both pools, then wires the repositories.
func Connect(ctx context.Context, researchDSN, metaDSN string, logger arbor.ILogger) (*Stores, error) {
	research, err := open(ctx, "research", researchDSN)
	if err != nil {
		return nil, err
	}

	meta, err := open(ctx, "meta", metaDSN)
	if err != nil {
		research.Close()
		return nil, err
	}

	s := &Stores{ResearchDB: research, MetaDB: meta}
	s.Articles = NewArticleStore(research, logger)
	s.Relationships = NewRelationshipStore(research)
	s.Congress = NewCongressStore(research)
	s.Politicians = NewPoliticianStore(research)
	s.Securities = NewSecurityStore(research)
	s.Social = NewSocialStore(research)
	s.DomainHealth = NewDomainHealthStore(research)
	s.Executions = NewJobExecutionStore(meta)
	s.RetryQueue = NewRetryQueueStore(meta)
	s.Feeds = NewFeedStore(meta)
	s.Funds = NewFundStore(meta)

	logger.Info().Msg("Connected to research and meta databases")
	return s, nil
}

func open(ctx context.Context, name, dsn string) (*sqlx.DB, error) {
	if dsn == "" {
		return nil, &ConnectivityError{Store: name, Cause: fmt.Errorf("empty DSN")}
	}

	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, &ConnectivityError{Store: name, Cause: err}
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)
	db.SetConnMaxIdleTime(connMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, &ConnectivityError{Store: name, Cause: err}
	}
	return db, nil
}

// Close closes both pools.
func (s *Stores) Close() error {
	var firstErr error
	if s.ResearchDB != nil {
		if err := s.ResearchDB.Close(); err != nil {
			firstErr = err
		}
	}
	if s.MetaDB != nil {
		if err := s.MetaDB.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Ping verifies both pools answer.
func (s *Stores) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := s.ResearchDB.PingContext(pingCtx); err != nil {
		return &ConnectivityError{Store: "research", Cause: err}
	}
	if err := s.MetaDB.PingContext(pingCtx); err != nil {
		return &ConnectivityError{Store: "meta", Cause: err}
	}
	return nil
}
