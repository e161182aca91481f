package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"valuation-backend/internal/catalog"
	"valuation-backend/internal/storage"
)

func (s *Storage) GetBank(ctx context.Context, code string) (*storage.Bank, error) {
	const op = "storage.mongo.GetBank"

	var bank storage.Bank
	err := s.db.Collection(banksCollection).
		FindOne(ctx, bson.M{"bankCode": code}, options.FindOne().SetCollation(caseInsensitive)).
		Decode(&bank)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return &bank, nil
}

func (s *Storage) ListBanks(ctx context.Context) ([]*storage.Bank, error) {
	const op = "storage.mongo.ListBanks"

	cur, err := s.db.Collection(banksCollection).Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "bankCode", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	banks := []*storage.Bank{}
	if err := cur.All(ctx, &banks); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return banks, nil
}

// SaveBank creates the bank or replaces its name, status and field overlays.
// The template list is left alone; it is maintained by SaveTemplate.
func (s *Storage) SaveBank(ctx context.Context, bank *storage.Bank) error {
	const op = "storage.mongo.SaveBank"

	update := bson.M{
		"$set": bson.M{
			"bankName":      bank.Name,
			"isActive":      bank.IsActive,
			"fieldOverlays": bank.FieldOverlays,
		},
		"$setOnInsert": bson.M{
			"_id":       bank.Code,
			"templates": []storage.BankTemplateRef{},
		},
	}
	_, err := s.db.Collection(banksCollection).UpdateOne(ctx,
		bson.M{"bankCode": bank.Code},
		update,
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return nil
}

func (s *Storage) GetTemplateStructure(ctx context.Context, collectionRef, templateID string) (*storage.TemplateStructure, error) {
	const op = "storage.mongo.GetTemplateStructure"

	var st storage.TemplateStructure
	err := s.db.Collection(collectionRef).FindOne(ctx, bson.M{"templateId": templateID}).Decode(&st)
	if err != nil {
		return nil, fmt.Errorf("%s: %s/%s: %w", op, collectionRef, templateID, mapErr(err))
	}
	return &st, nil
}

// SaveTemplate stores the structure in the collection named by ref and
// records ref on the bank, replacing an existing entry with the same id.
func (s *Storage) SaveTemplate(ctx context.Context, bankCode string, ref storage.BankTemplateRef, st *storage.TemplateStructure) error {
	const op = "storage.mongo.SaveTemplate"

	banks := s.db.Collection(banksCollection)
	if err := banks.FindOne(ctx, bson.M{"bankCode": bankCode}).Err(); err != nil {
		return fmt.Errorf("%s: bank %s: %w", op, bankCode, mapErr(err))
	}

	if st.ID == "" {
		st.ID = ref.TemplateID
	}
	_, err := s.db.Collection(ref.CollectionRef).ReplaceOne(ctx,
		bson.M{"templateId": ref.TemplateID},
		st,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("%s: structure: %w", op, mapErr(err))
	}

	res, err := banks.UpdateOne(ctx,
		bson.M{"bankCode": bankCode, "templates.templateId": ref.TemplateID},
		bson.M{"$set": bson.M{"templates.$": ref}},
	)
	if err != nil {
		return fmt.Errorf("%s: bank ref: %w", op, err)
	}
	if res.MatchedCount == 0 {
		_, err = banks.UpdateOne(ctx, bson.M{"bankCode": bankCode}, bson.M{"$push": bson.M{"templates": ref}})
		if err != nil {
			return fmt.Errorf("%s: bank ref: %w", op, err)
		}
	}

	return nil
}

func (s *Storage) SetTemplateActive(ctx context.Context, bankCode, templateID string, active bool) error {
	const op = "storage.mongo.SetTemplateActive"

	res, err := s.db.Collection(banksCollection).UpdateOne(ctx,
		bson.M{"bankCode": bankCode, "templates.templateId": templateID},
		bson.M{"$set": bson.M{"templates.$.isActive": active}},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%s: %s/%s: %w", op, bankCode, templateID, storage.ErrNotFound)
	}
	return nil
}

// GetCommonFields returns the shared field set. There is a single document.
func (s *Storage) GetCommonFields(ctx context.Context) (*storage.CommonFields, error) {
	const op = "storage.mongo.GetCommonFields"

	var cf storage.CommonFields
	if err := s.db.Collection(commonFieldsCollection).FindOne(ctx, bson.M{}).Decode(&cf); err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	return &cf, nil
}

// GetDocumentTypes returns the document types that apply to the bank and
// property type. Types without a bank or property type list apply to all.
func (s *Storage) GetDocumentTypes(ctx context.Context, bankCode, propertyType string) ([]catalog.DocumentType, error) {
	const op = "storage.mongo.GetDocumentTypes"

	filter := bson.M{"$and": bson.A{
		bson.M{"$or": bson.A{
			bson.M{"bankCodes": bson.M{"$exists": false}},
			bson.M{"bankCodes": bson.M{"$size": 0}},
			bson.M{"bankCodes": bankCode},
		}},
		bson.M{"$or": bson.A{
			bson.M{"propertyTypes": bson.M{"$exists": false}},
			bson.M{"propertyTypes": bson.M{"$size": 0}},
			bson.M{"propertyTypes": propertyType},
		}},
	}}
	opts := options.Find().
		SetSort(bson.D{{Key: "sortOrder", Value: 1}}).
		SetCollation(caseInsensitive)

	cur, err := s.db.Collection(documentTypesCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	types := []catalog.DocumentType{}
	if err := cur.All(ctx, &types); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return types, nil
}
