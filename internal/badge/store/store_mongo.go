package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"badgepass/internal/badge/models"
	id "badgepass/pkg/domain"
)

const badgeCollection = "badges"

type attendanceDocument struct {
	SessionID   string    `bson:"session_id"`
	CheckedInAt time.Time `bson:"checked_in_at"`
}

type badgeDocument struct {
	ID                  string               `bson:"_id"`
	ParticipantID       string               `bson:"participant_id"`
	ParticipantName     string               `bson:"participant_name"`
	ParticipantCategory string               `bson:"participant_category"`
	CredentialToken     string               `bson:"credential_token"`
	Status              string               `bson:"status"`
	IssuedAt            time.Time            `bson:"issued_at"`
	LastUsedAt          *time.Time           `bson:"last_used_at,omitempty"`
	AttendanceRecords   []attendanceDocument `bson:"attendance_records"`
}

// MongoStore keeps each badge, ledger included, as one document. Single
// document updates are atomic, so the ledger guard lives in the update filter.
type MongoStore struct {
	collection *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{collection: db.Collection(badgeCollection)}
}

// EnsureIndexes creates the partial unique index that enforces one active
// badge per participant.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "participant_id", Value: 1}},
		Options: options.Index().
			SetName("badges_one_active_per_participant").
			SetUnique(true).
			SetPartialFilterExpression(bson.D{{Key: "status", Value: string(models.StatusActive)}}),
	})
	if err != nil {
		return fmt.Errorf("create badge indexes: %w", err)
	}
	return nil
}

func (s *MongoStore) Create(ctx context.Context, badge *models.Badge) error {
	doc := toDocument(badge)
	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrConflict
		}
		return fmt.Errorf("mongo insert badge: %w", err)
	}
	return nil
}

func (s *MongoStore) FindByID(ctx context.Context, badgeID id.BadgeID) (*models.Badge, error) {
	return s.findOne(ctx, bson.M{"_id": badgeID.String()})
}

func (s *MongoStore) FindActiveByParticipant(ctx context.Context, participantID id.ParticipantID) (*models.Badge, error) {
	return s.findOne(ctx, bson.M{
		"participant_id": participantID.String(),
		"status":         string(models.StatusActive),
	})
}

func (s *MongoStore) findOne(ctx context.Context, filter bson.M) (*models.Badge, error) {
	var doc badgeDocument
	err := s.collection.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mongo find badge: %w", err)
	}
	return fromDocument(&doc)
}

func (s *MongoStore) AppendAttendance(ctx context.Context, badgeID id.BadgeID, session id.SessionID, at time.Time) (models.AppendResult, error) {
	at = at.UTC().Truncate(time.Millisecond)
	filter := bson.M{
		"_id":                           badgeID.String(),
		"attendance_records.session_id": bson.M{"$ne": session.String()},
	}
	update := bson.M{
		"$push": bson.M{"attendance_records": attendanceDocument{SessionID: session.String(), CheckedInAt: at}},
		"$max":  bson.M{"last_used_at": at},
	}
	res, err := s.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("mongo append attendance: %w", err)
	}
	if res.MatchedCount == 1 {
		return models.AppendRecorded, nil
	}

	count, err := s.collection.CountDocuments(ctx, bson.M{"_id": badgeID.String()}, options.Count().SetLimit(1))
	if err != nil {
		return 0, fmt.Errorf("mongo check badge existence: %w", err)
	}
	if count == 0 {
		return 0, ErrNotFound
	}
	return models.AppendAlreadyRecorded, nil
}

func (s *MongoStore) SetStatus(ctx context.Context, badgeID id.BadgeID, status models.Status) error {
	res, err := s.collection.UpdateOne(ctx,
		bson.M{"_id": badgeID.String()},
		bson.M{"$set": bson.M{"status": string(status)}},
	)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrConflict
		}
		return fmt.Errorf("mongo set status: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func toDocument(badge *models.Badge) *badgeDocument {
	doc := &badgeDocument{
		ID:                  badge.ID.String(),
		ParticipantID:       badge.ParticipantID.String(),
		ParticipantName:     badge.ParticipantName,
		ParticipantCategory: string(badge.ParticipantCategory),
		CredentialToken:     badge.CredentialToken,
		Status:              string(badge.Status),
		IssuedAt:            badge.IssuedAt.UTC(),
		AttendanceRecords:   make([]attendanceDocument, 0, len(badge.AttendanceRecords)),
	}
	if badge.LastUsedAt != nil {
		t := badge.LastUsedAt.UTC()
		doc.LastUsedAt = &t
	}
	for _, rec := range badge.AttendanceRecords {
		doc.AttendanceRecords = append(doc.AttendanceRecords, attendanceDocument{
			SessionID:   rec.SessionID.String(),
			CheckedInAt: rec.CheckedInAt.UTC(),
		})
	}
	return doc
}

func fromDocument(doc *badgeDocument) (*models.Badge, error) {
	badgeID, err := id.ParseBadgeID(doc.ID)
	if err != nil {
		return nil, fmt.Errorf("corrupt badge id %q: %w", doc.ID, err)
	}
	status, err := models.ParseStatus(doc.Status)
	if err != nil {
		return nil, fmt.Errorf("corrupt badge status %q: %w", doc.Status, err)
	}
	badge := &models.Badge{
		ID:                  badgeID,
		ParticipantID:       id.ParticipantID(doc.ParticipantID),
		ParticipantName:     doc.ParticipantName,
		ParticipantCategory: models.Category(doc.ParticipantCategory),
		CredentialToken:     doc.CredentialToken,
		Status:              status,
		IssuedAt:            doc.IssuedAt.UTC(),
		AttendanceRecords:   make([]models.AttendanceRecord, 0, len(doc.AttendanceRecords)),
	}
	if doc.LastUsedAt != nil {
		t := doc.LastUsedAt.UTC()
		badge.LastUsedAt = &t
	}
	for _, rec := range doc.AttendanceRecords {
		badge.AttendanceRecords = append(badge.AttendanceRecords, models.AttendanceRecord{
			SessionID:   id.SessionID(rec.SessionID),
			CheckedInAt: rec.CheckedInAt.UTC(),
		})
	}
	return badge, nil
}
