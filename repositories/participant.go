//go:generate go run go.uber.org/mock/mockgen -source=participant.go -destination=../mocks/mock_participant_repository.go -package=mocks
package repositories

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const participantPrefix = "participant:"

// Badger SSI aborts one of two conflicting transactions with ErrConflict.
// A handful of retries is enough: the retried transaction then observes
// whatever the winner committed and resolves to a domain outcome.
const maxTxnRetries = 3

type IParticipantRepository interface {
	Join(name string, now time.Time) (domain.Participant, error)
	Touch(name string, now time.Time) error
	Exists(name string) (bool, error)
	List() ([]domain.Participant, error)
	ExpireOlderThan(cutoff time.Time) ([]domain.Participant, error)
}

// ParticipantRepository persists room membership in BadgerDB under
// "participant:{name}" keys. The store is the sole arbiter of atomicity:
// uniqueness on join and remove-and-return on expiry are single
// transactions, never application-level locks.
type ParticipantRepository struct {
	db *badger.DB
}

func NewParticipantRepository(db *badger.DB) *ParticipantRepository {
	return &ParticipantRepository{db: db}
}

// diskParticipant is the stored representation, timestamps as UnixNano.
type diskParticipant struct {
	Name         string `json:"name"`
	LastActivity int64  `json:"last_activity"`
}

// Join registers a new participant with lastActivity = now.
// The existence check and the insert run in one transaction, so two
// racing joins for the same name yield exactly one success and one
// errors.ErrNameTaken.
func (r *ParticipantRepository) Join(name string, now time.Time) (domain.Participant, error) {
	participant := domain.Participant{Name: name, LastActivity: now.UTC()}
	data, err := json.Marshal(fromParticipant(participant))
	if err != nil {
		return domain.Participant{}, fmt.Errorf("marshal failed: %w", err)
	}

	key := []byte(participantPrefix + name)
	err = r.updateWithRetry(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err == nil {
			return errors.ErrNameTaken
		} else if err != badger.ErrKeyNotFound {
			return err
		}
		return txn.Set(key, data)
	})
	if err != nil {
		return domain.Participant{}, err
	}
	return participant, nil
}

// Touch refreshes lastActivity for a registered participant.
func (r *ParticipantRepository) Touch(name string, now time.Time) error {
	data, err := json.Marshal(diskParticipant{Name: name, LastActivity: now.UTC().UnixNano()})
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}

	key := []byte(participantPrefix + name)
	return r.updateWithRetry(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err == badger.ErrKeyNotFound {
			return errors.ErrUnknownParticipant
		} else if err != nil {
			return err
		}
		return txn.Set(key, data)
	})
}

func (r *ParticipantRepository) Exists(name string) (bool, error) {
	err := r.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(participantPrefix + name))
		return err
	})
	if err == badger.ErrKeyNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// List returns a snapshot of the current membership.
func (r *ParticipantRepository) List() ([]domain.Participant, error) {
	var participants []domain.Participant
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(participantPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var disk diskParticipant
				if err := json.Unmarshal(val, &disk); err != nil {
					return err
				}
				participants = append(participants, toParticipant(disk))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return participants, nil
}

// ExpireOlderThan removes every participant whose lastActivity predates
// cutoff and returns the removed set. Scan and delete happen in a single
// transaction, so a participant is reported by at most one caller; a
// second call with the same cutoff returns an empty set.
func (r *ParticipantRepository) ExpireOlderThan(cutoff time.Time) ([]domain.Participant, error) {
	var removed []domain.Participant
	err := r.updateWithRetry(func(txn *badger.Txn) error {
		removed = removed[:0]

		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(participantPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			var disk diskParticipant
			err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &disk)
			})
			if err != nil {
				return err
			}

			participant := toParticipant(disk)
			if !participant.StaleAt(cutoff) {
				continue
			}
			if err := txn.Delete(item.KeyCopy(nil)); err != nil {
				return err
			}
			removed = append(removed, participant)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

func (r *ParticipantRepository) updateWithRetry(fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt < maxTxnRetries; attempt++ {
		err = r.db.Update(fn)
		if err != badger.ErrConflict {
			return err
		}
	}
	return err
}

func fromParticipant(p domain.Participant) diskParticipant {
	return diskParticipant{Name: p.Name, LastActivity: p.LastActivity.UnixNano()}
}

func toParticipant(disk diskParticipant) domain.Participant {
	return domain.Participant{
		Name:         disk.Name,
		LastActivity: time.Unix(0, disk.LastActivity).UTC(),
	}
}
