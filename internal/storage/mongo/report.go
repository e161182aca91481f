package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"valuation-backend/internal/storage"
)

func (s *Storage) CreateReport(ctx context.Context, r *storage.Report) error {
	const op = "storage.mongo.CreateReport"

	if _, err := s.db.Collection(reportsCollection).InsertOne(ctx, r); err != nil {
		return fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return nil
}

func (s *Storage) GetReport(ctx context.Context, orgID, reportID string) (*storage.Report, error) {
	const op = "storage.mongo.GetReport"

	var r storage.Report
	err := s.db.Collection(reportsCollection).
		FindOne(ctx, bson.M{"_id": reportID, "organizationId": orgID}).
		Decode(&r)
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", op, reportID, mapErr(err))
	}
	return &r, nil
}

func (s *Storage) ListReports(ctx context.Context, orgID string, f storage.ReportFilter) ([]*storage.Report, error) {
	const op = "storage.mongo.ListReports"

	filter := bson.M{"organizationId": orgID}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.BankCode != "" {
		filter["bankCode"] = f.BankCode
	}
	if f.PropertyType != "" {
		filter["propertyType"] = f.PropertyType
	}
	if f.CreatedBy != "" {
		filter["createdBy"] = f.CreatedBy
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "updatedAt", Value: -1}}).
		SetProjection(bson.M{"values": 0, "tableStates": 0})
	if f.Limit > 0 {
		opts.SetLimit(f.Limit)
	}
	if f.Offset > 0 {
		opts.SetSkip(f.Offset)
	}

	cur, err := s.db.Collection(reportsCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	reports := []*storage.Report{}
	if err := cur.All(ctx, &reports); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return reports, nil
}

// UpdateReport writes r only if the stored version is still expectedVersion.
func (s *Storage) UpdateReport(ctx context.Context, r *storage.Report, expectedVersion int64) error {
	const op = "storage.mongo.UpdateReport"

	coll := s.db.Collection(reportsCollection)
	res, err := coll.UpdateOne(ctx,
		bson.M{"_id": r.ID, "organizationId": r.OrganizationID, "version": expectedVersion},
		bson.M{"$set": bson.M{
			"status":      r.Status,
			"values":      r.Values,
			"tableStates": r.TableStates,
			"version":     r.Version,
			"updatedBy":   r.UpdatedBy,
			"updatedAt":   r.UpdatedAt,
		}},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if res.MatchedCount == 1 {
		return nil
	}

	n, err := coll.CountDocuments(ctx, bson.M{"_id": r.ID, "organizationId": r.OrganizationID})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %s: %w", op, r.ID, storage.ErrNotFound)
	}
	return fmt.Errorf("%s: %s changed since version %d: %w", op, r.ID, expectedVersion, storage.ErrConflict)
}

func (s *Storage) DeleteReport(ctx context.Context, orgID, reportID string) error {
	const op = "storage.mongo.DeleteReport"

	res, err := s.db.Collection(reportsCollection).DeleteOne(ctx, bson.M{"_id": reportID, "organizationId": orgID})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%s: %s: %w", op, reportID, storage.ErrNotFound)
	}
	return nil
}
