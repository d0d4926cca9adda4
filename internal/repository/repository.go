// Package repository stores proof results and proving failures.
package repository

import (
	"errors"

	"gorm.io/gorm"
)

var ErrNotFound = errors.New("proof record not found")

type ProofRepository interface {
	SaveProof(*ProofRecord) error
	SaveFailure(*ProofFailure) error
	// FindByUserAddress returns the newest records first.
	FindByUserAddress(userAddress string) ([]ProofRecord, error)
	LatestByUserAddress(userAddress string) (ProofRecord, error)
	FailuresByEventId(eventId string) ([]ProofFailure, error)
}

func NewProofRepository(db *gorm.DB) ProofRepository {
	return &proofRepository{db: db}
}

type proofRepository struct {
	db *gorm.DB
}

func (r *proofRepository) SaveProof(record *ProofRecord) error {
	return r.db.Create(record).Error
}

func (r *proofRepository) SaveFailure(failure *ProofFailure) error {
	return r.db.Create(failure).Error
}

func (r *proofRepository) FindByUserAddress(userAddress string) ([]ProofRecord, error) {
	var records []ProofRecord
	err := r.db.
		Where("user_address = ?", userAddress).
		Order("created_at desc, id desc").
		Find(&records).Error
	return records, err
}

func (r *proofRepository) LatestByUserAddress(userAddress string) (ProofRecord, error) {
	var record ProofRecord
	err := r.db.
		Where("user_address = ?", userAddress).
		Order("created_at desc, id desc").
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ProofRecord{}, ErrNotFound
	}
	return record, err
}

func (r *proofRepository) FailuresByEventId(eventId string) ([]ProofFailure, error) {
	var failures []ProofFailure
	err := r.db.Where("event_id = ?", eventId).Order("id").Find(&failures).Error
	return failures, err
}
