// Package mongodb stores users as single documents with their relationship lists
// and weight log embedded.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/calcount/calcount-api/internal/domain/entity"
	"github.com/calcount/calcount-api/internal/domain/repository"
)

type userDoc struct {
	ID             string      `bson:"_id"`
	Username       string      `bson:"username"`
	Email          string      `bson:"email"`
	EmailLower     string      `bson:"email_lower"`
	FullName       fullNameDoc `bson:"full_name"`
	PasswordHash   string      `bson:"password_hash"`
	SentRequests   []string    `bson:"sent_requests"`
	FriendRequests []string    `bson:"friend_requests"`
	Friends        []string    `bson:"friends"`
	WeightLog      []weightDoc `bson:"weight_log"`
	CreatedAt      time.Time   `bson:"created_at"`
	UpdatedAt      time.Time   `bson:"updated_at"`
}

type fullNameDoc struct {
	FirstName  string `bson:"first_name"`
	MiddleName string `bson:"middle_name,omitempty"`
	LastName   string `bson:"last_name"`
}

type weightDoc struct {
	Weight float64 `bson:"weight"`
	Date   string  `bson:"date"`
}

type UserRepository struct {
	client *mongo.Client
	col    *mongo.Collection
}

func NewUserRepository(client *mongo.Client, db *mongo.Database) *UserRepository {
	return &UserRepository{client: client, col: db.Collection(usersCollection)}
}

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	doc := toDoc(u)
	doc.WeightLog = []weightDoc{}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return mapErr(err)
	}
	return nil
}

// userProjection excludes the embedded weight log from user reads.
var userProjection = options.FindOne().SetProjection(bson.M{"weight_log": 0})

func (r *UserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*entity.User, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.findOne(ctx, bson.M{"email_lower": strings.ToLower(email)})
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*entity.User, error) {
	var doc userDoc
	if err := r.col.FindOne(ctx, filter, userProjection).Decode(&doc); err != nil {
		return nil, mapErr(err)
	}
	return fromDoc(&doc), nil
}

func (r *UserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	n, err := r.col.CountDocuments(ctx, bson.M{"username": username}, options.Count().SetLimit(1))
	return n > 0, err
}

func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	n, err := r.col.CountDocuments(ctx, bson.M{"email_lower": strings.ToLower(email)}, options.Count().SetLimit(1))
	return n > 0, err
}

func (r *UserRepository) SearchByUsername(ctx context.Context, fragment string, limit int) ([]*entity.User, error) {
	if limit <= 0 {
		limit = 50
	}
	filter := bson.M{"username": bson.M{"$regex": regexp.QuoteMeta(fragment), "$options": "i"}}
	opts := options.Find().
		SetProjection(bson.M{"weight_log": 0}).
		SetSort(bson.D{{Key: "username", Value: 1}}).
		SetLimit(int64(limit))

	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var docs []userDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*entity.User, 0, len(docs))
	for i := range docs {
		out = append(out, fromDoc(&docs[i]))
	}
	return out, nil
}

func (r *UserRepository) ListUsernames(ctx context.Context) ([]string, error) {
	opts := options.Find().
		SetProjection(bson.M{"username": 1}).
		SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "username", Value: 1}})
	cur, err := r.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	var docs []struct {
		Username string `bson:"username"`
	}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.Username)
	}
	return out, nil
}

func (r *UserRepository) Save(ctx context.Context, u *entity.User) error {
	return r.upsert(ctx, u)
}

// SaveAll writes every record inside a multi-document transaction.
func (r *UserRepository) SaveAll(ctx context.Context, users ...*entity.User) error {
	sess, err := r.client.StartSession()
	if err != nil {
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		for _, u := range users {
			if err := r.upsert(sc, u); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	return err
}

// upsert never touches the embedded weight log, which is only written by
// AppendWeightEntry.
func (r *UserRepository) upsert(ctx context.Context, u *entity.User) error {
	u.UpdatedAt = time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = u.UpdatedAt
	}
	doc := toDoc(u)
	update := bson.M{
		"$set": bson.M{
			"username":        doc.Username,
			"email":           doc.Email,
			"email_lower":     doc.EmailLower,
			"full_name":       doc.FullName,
			"password_hash":   doc.PasswordHash,
			"sent_requests":   doc.SentRequests,
			"friend_requests": doc.FriendRequests,
			"friends":         doc.Friends,
			"updated_at":      doc.UpdatedAt,
		},
		"$setOnInsert": bson.M{
			"created_at": doc.CreatedAt,
			"weight_log": []weightDoc{},
		},
	}
	_, err := r.col.UpdateByID(ctx, u.ID, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert user %s: %w", u.ID, mapErr(err))
	}
	return nil
}

func (r *UserRepository) AppendWeightEntry(ctx context.Context, userID string, e entity.WeightLogEntry) error {
	entry := weightDoc{Weight: *e.Weight, Date: e.Date.String()}
	res, err := r.col.UpdateByID(ctx, userID, bson.M{"$push": bson.M{"weight_log": entry}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepository) ListWeightEntries(ctx context.Context, userID string) ([]entity.WeightLogEntry, error) {
	var doc struct {
		WeightLog []weightDoc `bson:"weight_log"`
	}
	opts := options.FindOne().SetProjection(bson.M{"weight_log": 1})
	if err := r.col.FindOne(ctx, bson.M{"_id": userID}, opts).Decode(&doc); err != nil {
		return nil, mapErr(err)
	}
	out := make([]entity.WeightLogEntry, 0, len(doc.WeightLog))
	for _, w := range doc.WeightLog {
		d, err := civil.ParseDate(w.Date)
		if err != nil {
			return nil, fmt.Errorf("decode weight entry date %q: %w", w.Date, err)
		}
		weight := w.Weight
		out = append(out, entity.WeightLogEntry{Weight: &weight, Date: &d})
	}
	return out, nil
}

func toDoc(u *entity.User) userDoc {
	return userDoc{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		EmailLower: strings.ToLower(u.Email),
		FullName: fullNameDoc{
			FirstName:  u.FullName.FirstName,
			MiddleName: u.FullName.MiddleName,
			LastName:   u.FullName.LastName,
		},
		PasswordHash:   u.PasswordHash,
		SentRequests:   nonNil(u.SentRequests),
		FriendRequests: nonNil(u.FriendRequests),
		Friends:        nonNil(u.Friends),
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}

func fromDoc(d *userDoc) *entity.User {
	return &entity.User{
		ID:       d.ID,
		Username: d.Username,
		Email:    d.Email,
		FullName: entity.FullName{
			FirstName:  d.FullName.FirstName,
			MiddleName: d.FullName.MiddleName,
			LastName:   d.FullName.LastName,
		},
		PasswordHash:   d.PasswordHash,
		SentRequests:   nonNil(d.SentRequests),
		FriendRequests: nonNil(d.FriendRequests),
		Friends:        nonNil(d.Friends),
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

func mapErr(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return repository.ErrNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %v", repository.ErrDuplicate, err)
	}
	return err
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

var (
	_ repository.UserRepository      = (*UserRepository)(nil)
	_ repository.WeightLogRepository = (*UserRepository)(nil)
)
