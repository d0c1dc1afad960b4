package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"badgepass/internal/badge/models"
	id "badgepass/pkg/domain"
)

const (
	badgeKeyPrefix       = "badge:"
	activeOwnerKeyPrefix = "badge:active:"
	maxWatchRetries      = 5
)

// Hash tags keep a badge's hash, session set and ledger in one slot.
func badgeKey(badgeID id.BadgeID) string {
	return badgeKeyPrefix + "{" + badgeID.String() + "}"
}

func sessionsKey(badgeID id.BadgeID) string {
	return badgeKey(badgeID) + ":sessions"
}

func ledgerKey(badgeID id.BadgeID) string {
	return badgeKey(badgeID) + ":ledger"
}

func activeOwnerKey(participantID string) string {
	return activeOwnerKeyPrefix + participantID
}

// KEYS: badge hash, active owner key
// ARGV: id, participant_id, name, category, token, status, issued_at_ms, last_used_at_ms
// Returns 1 on insert, 0 on conflict.
var createScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return 0
end
if ARGV[6] == 'active' then
	if redis.call('SETNX', KEYS[2], ARGV[1]) == 0 then
		return 0
	end
end
redis.call('HSET', KEYS[1],
	'participant_id', ARGV[2],
	'participant_name', ARGV[3],
	'participant_category', ARGV[4],
	'credential_token', ARGV[5],
	'status', ARGV[6],
	'issued_at_ms', ARGV[7])
if ARGV[8] ~= '' then
	redis.call('HSET', KEYS[1], 'last_used_at_ms', ARGV[8])
end
return 1
`)

// KEYS: badge hash, sessions hash, ledger list
// ARGV: session_id, checked_in_at_ms
// Returns 1 recorded, 0 already recorded, -1 unknown badge.
var appendScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return -1
end
if redis.call('HSETNX', KEYS[2], ARGV[1], ARGV[2]) == 0 then
	return 0
end
redis.call('RPUSH', KEYS[3], ARGV[1])
local last = tonumber(redis.call('HGET', KEYS[1], 'last_used_at_ms') or '0')
if tonumber(ARGV[2]) > last then
	redis.call('HSET', KEYS[1], 'last_used_at_ms', ARGV[2])
end
return 1
`)

// RedisStore keeps each badge as a hash with its ledger in a sibling list.
// Writes that check and mutate run as Lua scripts so Redis serialises them.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Create(ctx context.Context, badge *models.Badge) error {
	lastUsed := ""
	if badge.LastUsedAt != nil {
		lastUsed = strconv.FormatInt(toMillis(*badge.LastUsedAt), 10)
	}
	created, err := createScript.Run(ctx, s.client,
		[]string{badgeKey(badge.ID), activeOwnerKey(badge.ParticipantID.String())},
		badge.ID.String(),
		badge.ParticipantID.String(),
		badge.ParticipantName,
		string(badge.ParticipantCategory),
		badge.CredentialToken,
		string(badge.Status),
		toMillis(badge.IssuedAt),
		lastUsed,
	).Int()
	if err != nil {
		return fmt.Errorf("redis create badge: %w", err)
	}
	if created == 0 {
		return ErrConflict
	}
	return nil
}

func (s *RedisStore) FindByID(ctx context.Context, badgeID id.BadgeID) (*models.Badge, error) {
	var (
		fieldsCmd   *redis.MapStringStringCmd
		sessionsCmd *redis.MapStringStringCmd
		ledgerCmd   *redis.StringSliceCmd
	)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		fieldsCmd = pipe.HGetAll(ctx, badgeKey(badgeID))
		sessionsCmd = pipe.HGetAll(ctx, sessionsKey(badgeID))
		ledgerCmd = pipe.LRange(ctx, ledgerKey(badgeID), 0, -1)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("redis read badge: %w", err)
	}
	fields := fieldsCmd.Val()
	if len(fields) == 0 {
		return nil, ErrNotFound
	}
	badge, err := badgeFromHash(badgeID, fields)
	if err != nil {
		return nil, err
	}
	sessions := sessionsCmd.Val()
	for _, session := range ledgerCmd.Val() {
		millis, err := strconv.ParseInt(sessions[session], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("corrupt attendance time for session %q: %w", session, err)
		}
		badge.AttendanceRecords = append(badge.AttendanceRecords, models.AttendanceRecord{
			SessionID:   id.SessionID(session),
			CheckedInAt: fromMillis(millis),
		})
	}
	return badge, nil
}

func (s *RedisStore) FindActiveByParticipant(ctx context.Context, participantID id.ParticipantID) (*models.Badge, error) {
	raw, err := s.client.Get(ctx, activeOwnerKey(participantID.String())).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis read active owner: %w", err)
	}
	badgeID, err := id.ParseBadgeID(raw)
	if err != nil {
		return nil, fmt.Errorf("corrupt active owner entry %q: %w", raw, err)
	}
	badge, err := s.FindByID(ctx, badgeID)
	if err != nil {
		return nil, err
	}
	if !badge.IsActive() {
		return nil, ErrNotFound
	}
	return badge, nil
}

func (s *RedisStore) AppendAttendance(ctx context.Context, badgeID id.BadgeID, session id.SessionID, at time.Time) (models.AppendResult, error) {
	result, err := appendScript.Run(ctx, s.client,
		[]string{badgeKey(badgeID), sessionsKey(badgeID), ledgerKey(badgeID)},
		session.String(),
		toMillis(at),
	).Int()
	if err != nil {
		return 0, fmt.Errorf("redis append attendance: %w", err)
	}
	switch result {
	case 1:
		return models.AppendRecorded, nil
	case 0:
		return models.AppendAlreadyRecorded, nil
	default:
		return 0, ErrNotFound
	}
}

// SetStatus flips the status and maintains the active-owner index under
// WATCH, retrying when a concurrent writer touches either key.
func (s *RedisStore) SetStatus(ctx context.Context, badgeID id.BadgeID, status models.Status) error {
	key := badgeKey(badgeID)
	for range maxWatchRetries {
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			values, err := tx.HMGet(ctx, key, "participant_id", "status").Result()
			if err != nil {
				return err
			}
			participant, ok := values[0].(string)
			if !ok {
				return ErrNotFound
			}
			current, _ := values[1].(string)
			if current == string(status) {
				return nil
			}

			owner := activeOwnerKey(participant)
			if err := tx.Watch(ctx, owner).Err(); err != nil {
				return err
			}
			if status == models.StatusActive {
				holder, err := tx.Get(ctx, owner).Result()
				if err != nil && !errors.Is(err, redis.Nil) {
					return err
				}
				if err == nil && holder != badgeID.String() {
					return ErrConflict
				}
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.HSet(ctx, key, "status", string(status))
				if status == models.StatusActive {
					pipe.Set(ctx, owner, badgeID.String(), 0)
				} else {
					pipe.Del(ctx, owner)
				}
				return nil
			})
			return err
		}, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil && !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrConflict) {
			return fmt.Errorf("redis set status: %w", err)
		}
		return err
	}
	return fmt.Errorf("redis set status: %w", redis.TxFailedErr)
}

func badgeFromHash(badgeID id.BadgeID, fields map[string]string) (*models.Badge, error) {
	status, err := models.ParseStatus(fields["status"])
	if err != nil {
		return nil, fmt.Errorf("corrupt badge status %q: %w", fields["status"], err)
	}
	issuedAt, err := strconv.ParseInt(fields["issued_at_ms"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt issued_at: %w", err)
	}
	badge := &models.Badge{
		ID:                  badgeID,
		ParticipantID:       id.ParticipantID(fields["participant_id"]),
		ParticipantName:     fields["participant_name"],
		ParticipantCategory: models.Category(fields["participant_category"]),
		CredentialToken:     fields["credential_token"],
		Status:              status,
		IssuedAt:            fromMillis(issuedAt),
		AttendanceRecords:   []models.AttendanceRecord{},
	}
	if raw, ok := fields["last_used_at_ms"]; ok && raw != "" {
		millis, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("corrupt last_used_at: %w", err)
		}
		t := fromMillis(millis)
		badge.LastUsedAt = &t
	}
	return badge, nil
}
