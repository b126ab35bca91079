// Package mongostore implements ledger.Store on MongoDB. Units of work use
// multi-document transactions when the deployment supports them (replica
// sets); on a standalone server they run without rollback and the budget
// adjustment remains a single atomic update.
package mongostore

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
	"fintrack/internal/log"
)

type Config struct {
	URI          string
	Database     string
	Transactions bool
}

type Store struct {
	client       *mongo.Client
	db           *mongo.Database
	transactions bool
	inTx         bool
	logger       *log.Logger
}

var _ ledger.Store = (*Store)(nil)

// Connect dials MongoDB, verifies the connection and ensures indexes.
func Connect(ctx context.Context, cfg Config, logger *log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentStorage)
	logger.DebugContext(ctx, "Connecting to MongoDB", "database", cfg.Database)

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping MongoDB: %w", err)
	}

	s := &Store{
		client:       client,
		db:           client.Database(cfg.Database),
		transactions: cfg.Transactions,
		logger:       logger,
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	logger.InfoContext(ctx, "Connected to MongoDB",
		"database", cfg.Database, "transactions", cfg.Transactions)
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		budgetsCollection: {
			{Keys: bson.D{{Key: "category", Value: 1}, {Key: "month", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "month", Value: 1}}},
		},
		transactionsCollection: {
			{Keys: bson.D{{Key: "occurred_at", Value: -1}}},
			{Keys: bson.D{{Key: "category", Value: 1}, {Key: "occurred_at", Value: -1}}},
		},
		categoriesCollection: {
			{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}
	for coll, models := range indexes {
		if _, err := s.db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create %s indexes: %w", coll, err)
		}
	}
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// RunInTx wraps fn in a session transaction when enabled. Nested calls reuse
// the outer unit of work.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx ledger.Store) error) error {
	if s.inTx || !s.transactions {
		return fn(ctx, s)
	}

	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	tx := *s
	tx.inTx = true
	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		return nil, fn(sc, &tx)
	})
	return err
}

func (s *Store) coll(name string) *mongo.Collection {
	return s.db.Collection(name)
}

func (s *Store) ListTransactions(ctx context.Context, f ledger.TransactionFilter) ([]core.Transaction, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "occurred_at", Value: -1},
		{Key: "created_at", Value: -1},
		{Key: "_id", Value: -1},
	})
	cur, err := s.coll(transactionsCollection).Find(ctx, transactionFilter(f), opts)
	if err != nil {
		return nil, fmt.Errorf("find transactions: %w", err)
	}
	var docs []transactionDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode transactions: %w", err)
	}
	out := make([]core.Transaction, len(docs))
	for i, d := range docs {
		out[i] = d.toCore()
	}
	return out, nil
}

func (s *Store) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	var doc transactionDoc
	err := s.coll(transactionsCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return doc.toCore(), nil
}

func (s *Store) InsertTransaction(ctx context.Context, t core.Transaction) error {
	if _, err := s.coll(transactionsCollection).InsertOne(ctx, toTransactionDoc(t)); err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (s *Store) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	doc := toTransactionDoc(t)
	res, err := s.coll(transactionsCollection).UpdateByID(ctx, t.ID, bson.M{"$set": bson.M{
		"amount_cents":     doc.AmountCents,
		"description":      doc.Description,
		"category":         doc.Category,
		"type":             doc.Type,
		"occurred_at":      doc.OccurredAt,
		"auto_categorized": doc.AutoCategorized,
	}})
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("transaction %s: %w", t.ID, core.ErrNotFound)
	}
	return nil
}

func (s *Store) DeleteTransaction(ctx context.Context, id string) error {
	res, err := s.coll(transactionsCollection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	return nil
}

func (s *Store) ListBudgets(ctx context.Context, month core.Month) ([]core.Budget, error) {
	filter := bson.M{}
	if month != "" {
		filter["month"] = string(month)
	}
	opts := options.Find().SetSort(bson.D{{Key: "month", Value: -1}, {Key: "category", Value: 1}})
	cur, err := s.coll(budgetsCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find budgets: %w", err)
	}
	var docs []budgetDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode budgets: %w", err)
	}
	out := make([]core.Budget, len(docs))
	for i, d := range docs {
		out[i] = d.toCore()
	}
	return out, nil
}

func (s *Store) findOneBudget(ctx context.Context, filter bson.M, what string) (core.Budget, error) {
	var doc budgetDoc
	err := s.coll(budgetsCollection).FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return core.Budget{}, fmt.Errorf("budget %s: %w", what, core.ErrNotFound)
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget: %w", err)
	}
	return doc.toCore(), nil
}

func (s *Store) GetBudget(ctx context.Context, id string) (core.Budget, error) {
	return s.findOneBudget(ctx, bson.M{"_id": id}, id)
}

func (s *Store) FindBudget(ctx context.Context, category string, month core.Month) (core.Budget, error) {
	return s.findOneBudget(ctx, bson.M{"category": category, "month": string(month)}, category+"/"+string(month))
}

func (s *Store) InsertBudget(ctx context.Context, b core.Budget) error {
	if _, err := s.coll(budgetsCollection).InsertOne(ctx, toBudgetDoc(b)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("budget %s/%s: %w", b.Category, b.Month, core.ErrBudgetExists)
		}
		return fmt.Errorf("insert budget: %w", err)
	}
	return nil
}

func (s *Store) UpdateBudget(ctx context.Context, b core.Budget) error {
	res, err := s.coll(budgetsCollection).UpdateByID(ctx, b.ID, bson.M{"$set": bson.M{
		"category":    b.Category,
		"month":       string(b.Month),
		"limit_cents": b.Limit.Cents(),
	}})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("budget %s/%s: %w", b.Category, b.Month, core.ErrBudgetExists)
		}
		return fmt.Errorf("update budget: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("budget %s: %w", b.ID, core.ErrNotFound)
	}
	return nil
}

func (s *Store) DeleteBudget(ctx context.Context, id string) error {
	res, err := s.coll(budgetsCollection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("budget %s: %w", id, core.ErrNotFound)
	}
	return nil
}

func (s *Store) AdjustBudgetSpent(ctx context.Context, category string, month core.Month, delta core.Money) (bool, error) {
	res, err := s.coll(budgetsCollection).UpdateOne(ctx,
		bson.M{"category": category, "month": string(month)},
		spentPipeline(delta.Cents()))
	if err != nil {
		return false, fmt.Errorf("adjust budget spent: %w", err)
	}
	return res.MatchedCount > 0, nil
}

func (s *Store) ListCategories(ctx context.Context) ([]core.Category, error) {
	opts := options.Find().SetSort(bson.D{{Key: "position", Value: 1}, {Key: "name", Value: 1}})
	cur, err := s.coll(categoriesCollection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find categories: %w", err)
	}
	var docs []categoryDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode categories: %w", err)
	}
	out := make([]core.Category, len(docs))
	for i, d := range docs {
		out[i] = core.Category{ID: d.ID, Name: d.Name, Icon: d.Icon, Color: d.Color}
	}
	return out, nil
}

func (s *Store) InsertCategories(ctx context.Context, cats []core.Category) error {
	if len(cats) == 0 {
		return nil
	}
	docs := make([]any, len(cats))
	for i, c := range cats {
		docs[i] = categoryDoc{ID: c.ID, Name: c.Name, Icon: c.Icon, Color: c.Color, Position: i}
	}
	if _, err := s.coll(categoriesCollection).InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("insert categories: %w", err)
	}
	return nil
}
