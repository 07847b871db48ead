package mongodb

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/trezcool/masomo-learn/core/analytics"
)

type recordRepository struct {
	coll *mongo.Collection
}

var _ analytics.RecordRepository = (*recordRepository)(nil) // interface compliance check

func NewRecordRepository(coll *mongo.Collection) analytics.RecordRepository {
	return &recordRepository{coll: coll}
}

func (repo *recordRepository) GetRecord(ctx context.Context, studentID string) (analytics.StudentRecord, error) {
	var rec analytics.StudentRecord
	err := repo.coll.FindOne(ctx, bson.M{"_id": studentID}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return analytics.StudentRecord{}, analytics.ErrRecordNotFound
	}
	if err != nil {
		return analytics.StudentRecord{}, errors.Wrap(err, "finding student record")
	}
	if rec.SubjectProgress == nil {
		rec.SubjectProgress = make(analytics.SubjectProgressMap)
	}
	return rec, nil
}

func (repo *recordRepository) CreateRecord(ctx context.Context, rec analytics.StudentRecord) (analytics.StudentRecord, error) {
	rec.Version = 1
	_, err := repo.coll.InsertOne(ctx, rec)
	if mongo.IsDuplicateKeyError(err) {
		return analytics.StudentRecord{}, analytics.ErrRecordExists
	}
	if err != nil {
		return analytics.StudentRecord{}, errors.Wrap(err, "inserting student record")
	}
	return rec, nil
}

// SaveRecord replaces the document only if nobody saved it since rec was loaded.
func (repo *recordRepository) SaveRecord(ctx context.Context, rec analytics.StudentRecord) (analytics.StudentRecord, error) {
	loaded := rec.Version
	rec.Version++

	res, err := repo.coll.ReplaceOne(ctx, bson.M{"_id": rec.StudentID, "version": loaded}, rec)
	if err != nil {
		return analytics.StudentRecord{}, errors.Wrap(err, "replacing student record")
	}
	if res.MatchedCount > 0 {
		return rec, nil
	}

	n, err := repo.coll.CountDocuments(ctx, bson.M{"_id": rec.StudentID}, options.Count().SetLimit(1))
	if err != nil {
		return analytics.StudentRecord{}, errors.Wrap(err, "checking student record")
	}
	if n == 0 {
		return analytics.StudentRecord{}, analytics.ErrRecordNotFound
	}
	return analytics.StudentRecord{}, analytics.ErrConflict
}
