package mongostore

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

const (
	transactionsCollection = "transactions"
	budgetsCollection      = "budgets"
	categoriesCollection   = "categories"
)

type transactionDoc struct {
	ID              string    `bson:"_id"`
	AmountCents     int64     `bson:"amount_cents"`
	Description     string    `bson:"description"`
	Category        string    `bson:"category"`
	Type            string    `bson:"type"`
	OccurredAt      time.Time `bson:"occurred_at"`
	AutoCategorized bool      `bson:"auto_categorized"`
	CreatedAt       time.Time `bson:"created_at"`
}

type budgetDoc struct {
	ID         string    `bson:"_id"`
	Category   string    `bson:"category"`
	Month      string    `bson:"month"`
	LimitCents int64     `bson:"limit_cents"`
	SpentCents int64     `bson:"spent_cents"`
	CreatedAt  time.Time `bson:"created_at"`
}

type categoryDoc struct {
	ID       string `bson:"_id"`
	Name     string `bson:"name"`
	Icon     string `bson:"icon"`
	Color    string `bson:"color"`
	Position int    `bson:"position"`
}

func toTransactionDoc(t core.Transaction) transactionDoc {
	return transactionDoc{
		ID:              t.ID,
		AmountCents:     t.Amount.Cents(),
		Description:     t.Description,
		Category:        t.Category,
		Type:            string(t.Type),
		OccurredAt:      t.Date.UTC(),
		AutoCategorized: t.AutoCategorized,
		CreatedAt:       t.CreatedAt.UTC(),
	}
}

func (d transactionDoc) toCore() core.Transaction {
	return core.Transaction{
		ID:              d.ID,
		Amount:          core.MoneyFromCents(d.AmountCents),
		Description:     d.Description,
		Category:        d.Category,
		Type:            core.TransactionType(d.Type),
		Date:            d.OccurredAt.UTC(),
		AutoCategorized: d.AutoCategorized,
		CreatedAt:       d.CreatedAt.UTC(),
	}
}

func toBudgetDoc(b core.Budget) budgetDoc {
	return budgetDoc{
		ID:         b.ID,
		Category:   b.Category,
		Month:      string(b.Month),
		LimitCents: b.Limit.Cents(),
		SpentCents: b.Spent.FloorZero().Cents(),
		CreatedAt:  b.CreatedAt.UTC(),
	}
}

func (d budgetDoc) toCore() core.Budget {
	return core.Budget{
		ID:        d.ID,
		Category:  d.Category,
		Month:     core.Month(d.Month),
		Limit:     core.MoneyFromCents(d.LimitCents),
		Spent:     core.MoneyFromCents(d.SpentCents),
		CreatedAt: d.CreatedAt.UTC(),
	}
}

// transactionFilter translates a ledger filter into a query document.
// BSON dates have millisecond precision, so bounds are compared as stored.
func transactionFilter(f ledger.TransactionFilter) bson.M {
	q := bson.M{}
	if f.Category != "" {
		q["category"] = f.Category
	}
	date := bson.M{}
	if !f.Start.IsZero() {
		date["$gte"] = f.Start.UTC()
	}
	if !f.End.IsZero() {
		date["$lte"] = f.End.UTC()
	}
	if len(date) > 0 {
		q["occurred_at"] = date
	}
	return q
}

// spentPipeline sets spent_cents = max(0, spent_cents + delta) server side.
func spentPipeline(deltaCents int64) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "spent_cents", Value: bson.D{
				{Key: "$max", Value: bson.A{0, bson.D{
					{Key: "$add", Value: bson.A{"$spent_cents", deltaCents}},
				}}},
			}},
		}}},
	}
}
