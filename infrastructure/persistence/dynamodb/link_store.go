package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ariellewolter/research-notebook-ver4-sub004/application/ports"
	"github.com/ariellewolter/research-notebook-ver4-sub004/domain/core/entities"
	"github.com/ariellewolter/research-notebook-ver4-sub004/domain/core/valueobjects"
	apperrors "github.com/ariellewolter/research-notebook-ver4-sub004/pkg/errors"
	"github.com/ariellewolter/research-notebook-ver4-sub004/pkg/utils"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"
)

const (
	entityTypeLink = "LINK"
	allLinksPK     = "LINKS"
	batchWriteSize = 25
	maxBatchRetry  = 5
)

// API is the subset of the DynamoDB client the store uses
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// Indexes names the three GSIs of the link table
type Indexes struct {
	BySource string // GSI1
	ByTarget string // GSI2
	All      string // GSI3
}

// DefaultIndexes returns the index names used by EnsureTable
func DefaultIndexes() Indexes {
	return Indexes{BySource: "GSI1", ByTarget: "GSI2", All: "GSI3"}
}

// linkItem represents the DynamoDB item structure for a link
type linkItem struct {
	PK         string  `dynamodbav:"PK"` // LINK#<id>
	SK         string  `dynamodbav:"SK"` // LINK
	EntityType string  `dynamodbav:"EntityType"`
	LinkID     string  `dynamodbav:"LinkID"`
	SourceType string  `dynamodbav:"SourceType"`
	SourceID   string  `dynamodbav:"SourceID"`
	TargetType string  `dynamodbav:"TargetType"`
	TargetID   string  `dynamodbav:"TargetID"`
	Metadata   *string `dynamodbav:"Metadata,omitempty"`
	CreatedAt  string  `dynamodbav:"CreatedAt"`
	UpdatedAt  string  `dynamodbav:"UpdatedAt"`

	// GSI1: links by source, newest first
	GSI1PK string `dynamodbav:"GSI1PK"` // SOURCE#<type>#<id>
	GSI1SK string `dynamodbav:"GSI1SK"` // <createdAt>#<id>

	// GSI2: links by target, newest first
	GSI2PK string `dynamodbav:"GSI2PK"` // TARGET#<type>#<id>
	GSI2SK string `dynamodbav:"GSI2SK"`

	// GSI3: every link, newest first
	GSI3PK string `dynamodbav:"GSI3PK"` // LINKS
	GSI3SK string `dynamodbav:"GSI3SK"`
}

func linkPK(id string) string { return "LINK#" + id }

func sourcePK(ref valueobjects.EntityRef) string {
	return fmt.Sprintf("SOURCE#%s#%s", ref.Type, ref.ID)
}

func targetPK(ref valueobjects.EntityRef) string {
	return fmt.Sprintf("TARGET#%s#%s", ref.Type, ref.ID)
}

// sortKey orders lexically as createdAt desc, id desc when scanned backwards
func sortKey(link *entities.Link) string {
	return utils.FormatSortableTime(link.CreatedAt) + "#" + link.ID
}

func newLinkItem(link *entities.Link) linkItem {
	sk := sortKey(link)
	return linkItem{
		PK:         linkPK(link.ID),
		SK:         entityTypeLink,
		EntityType: entityTypeLink,
		LinkID:     link.ID,
		SourceType: string(link.SourceType),
		SourceID:   link.SourceID,
		TargetType: string(link.TargetType),
		TargetID:   link.TargetID,
		Metadata:   link.Metadata,
		CreatedAt:  utils.FormatSortableTime(link.CreatedAt),
		UpdatedAt:  utils.FormatSortableTime(link.UpdatedAt),
		GSI1PK:     sourcePK(link.SourceRef()),
		GSI1SK:     sk,
		GSI2PK:     targetPK(link.TargetRef()),
		GSI2SK:     sk,
		GSI3PK:     allLinksPK,
		GSI3SK:     sk,
	}
}

func (i linkItem) toEntity() (*entities.Link, error) {
	createdAt, err := utils.ParseSortableTime(i.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("invalid CreatedAt on %s: %w", i.PK, err)
	}
	updatedAt, err := utils.ParseSortableTime(i.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("invalid UpdatedAt on %s: %w", i.PK, err)
	}
	return &entities.Link{
		ID:         i.LinkID,
		SourceType: valueobjects.EntityType(i.SourceType),
		SourceID:   i.SourceID,
		TargetType: valueobjects.EntityType(i.TargetType),
		TargetID:   i.TargetID,
		Metadata:   i.Metadata,
		CreatedAt:  createdAt,
		UpdatedAt:  updatedAt,
	}, nil
}

// LinkStore implements ports.LinkStore on a single DynamoDB table
type LinkStore struct {
	client    API
	tableName string
	indexes   Indexes
	now       func() time.Time
	logger    *zap.Logger
}

var _ ports.LinkStore = (*LinkStore)(nil)

// NewLinkStore creates a new DynamoDB link store
func NewLinkStore(client API, tableName string, indexes Indexes, logger *zap.Logger) *LinkStore {
	return &LinkStore{
		client:    client,
		tableName: tableName,
		indexes:   indexes,
		now:       utils.NowUTC,
		logger:    logger,
	}
}

// WithClock replaces the timestamp source
func (s *LinkStore) WithClock(now func() time.Time) *LinkStore {
	s.now = now
	return s
}

func (s *LinkStore) putRequest(link *entities.Link) (map[string]types.AttributeValue, error) {
	av, err := attributevalue.MarshalMap(newLinkItem(link))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal link: %w", err)
	}
	return av, nil
}

// Create stores one link
func (s *LinkStore) Create(ctx context.Context, input entities.LinkInput) (*entities.Link, error) {
	link, err := entities.NewLink(input, s.now())
	if err != nil {
		return nil, err
	}

	av, err := s.putRequest(link)
	if err != nil {
		return nil, apperrors.NewStorageError("create", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		return nil, storageError("create", err)
	}
	return link, nil
}

// CreatePair writes both links in one transaction
func (s *LinkStore) CreatePair(ctx context.Context, forward, reverse entities.LinkInput) (*entities.Link, *entities.Link, error) {
	now := s.now()
	fwd, err := entities.NewLink(forward, now)
	if err != nil {
		return nil, nil, err
	}
	rev, err := entities.NewLink(reverse, now)
	if err != nil {
		return nil, nil, err
	}

	items := make([]types.TransactWriteItem, 0, 2)
	for _, link := range []*entities.Link{fwd, rev} {
		av, err := s.putRequest(link)
		if err != nil {
			return nil, nil, apperrors.NewStorageError("create_pair", err)
		}
		items = append(items, types.TransactWriteItem{
			Put: &types.Put{
				TableName:           aws.String(s.tableName),
				Item:                av,
				ConditionExpression: aws.String("attribute_not_exists(PK)"),
			},
		})
	}

	if _, err := s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items}); err != nil {
		return nil, nil, storageError("create_pair", err)
	}
	return fwd, rev, nil
}

func (s *LinkStore) primaryKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: linkPK(id)},
		"SK": &types.AttributeValueMemberS{Value: entityTypeLink},
	}
}

// FindByID returns nil, nil when absent
func (s *LinkStore) FindByID(ctx context.Context, id string) (*entities.Link, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key:       s.primaryKey(id),
	})
	if err != nil {
		return nil, storageError("find_by_id", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}

	var item linkItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, apperrors.NewStorageError("find_by_id", err)
	}
	link, err := item.toEntity()
	if err != nil {
		return nil, apperrors.NewStorageError("find_by_id", err)
	}
	return link, nil
}

// Delete removes a link, failing with not found when it does not exist
func (s *LinkStore) Delete(ctx context.Context, id string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(s.tableName),
		Key:                 s.primaryKey(id),
		ConditionExpression: aws.String("attribute_exists(PK)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return apperrors.NewNotFoundError("link").WithDetails(map[string]interface{}{"id": id})
		}
		return storageError("delete", err)
	}
	return nil
}

// FindMany pages through the best index for filter, skipping skip matches
func (s *LinkStore) FindMany(ctx context.Context, filter ports.LinkFilter, skip, take int) ([]*entities.Link, error) {
	if take <= 0 {
		return []*entities.Link{}, nil
	}
	input, err := s.filteredQuery(filter, false)
	if err != nil {
		return nil, apperrors.NewStorageError("find_many", err)
	}
	return s.collect(ctx, "find_many", input, max(skip, 0), take)
}

// Count returns the exact number of links matching filter
func (s *LinkStore) Count(ctx context.Context, filter ports.LinkFilter) (int, error) {
	input, err := s.filteredQuery(filter, true)
	if err != nil {
		return 0, apperrors.NewStorageError("count", err)
	}

	total := 0
	paginator := dynamodb.NewQueryPaginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return 0, storageError("count", err)
		}
		total += int(page.Count)
	}
	return total, nil
}

// GetOutgoing returns links leaving ref
func (s *LinkStore) GetOutgoing(ctx context.Context, ref valueobjects.EntityRef) ([]*entities.Link, error) {
	input, err := s.indexQuery(s.indexes.BySource, "GSI1PK", sourcePK(ref), nil, false)
	if err != nil {
		return nil, apperrors.NewStorageError("get_outgoing", err)
	}
	return s.collect(ctx, "get_outgoing", input, 0, -1)
}

// GetBacklinks returns links pointing at ref
func (s *LinkStore) GetBacklinks(ctx context.Context, ref valueobjects.EntityRef) ([]*entities.Link, error) {
	input, err := s.indexQuery(s.indexes.ByTarget, "GSI2PK", targetPK(ref), nil, false)
	if err != nil {
		return nil, apperrors.NewStorageError("get_backlinks", err)
	}
	return s.collect(ctx, "get_backlinks", input, 0, -1)
}

// Search matches query as a case-sensitive substring of metadata
func (s *LinkStore) Search(ctx context.Context, query string, limit int) ([]*entities.Link, error) {
	if limit <= 0 {
		return []*entities.Link{}, nil
	}
	cond := expression.Name("Metadata").Contains(query)
	input, err := s.indexQuery(s.indexes.All, "GSI3PK", allLinksPK, &cond, false)
	if err != nil {
		return nil, apperrors.NewStorageError("search", err)
	}
	return s.collect(ctx, "search", input, 0, limit)
}

// DeleteByEntity removes every link touching ref in batches of 25
func (s *LinkStore) DeleteByEntity(ctx context.Context, ref valueobjects.EntityRef) (int, error) {
	outgoing, err := s.GetOutgoing(ctx, ref)
	if err != nil {
		return 0, err
	}
	backlinks, err := s.GetBacklinks(ctx, ref)
	if err != nil {
		return 0, err
	}

	seen := make(map[string]struct{}, len(outgoing)+len(backlinks))
	var requests []types.WriteRequest
	for _, link := range append(outgoing, backlinks...) {
		if _, ok := seen[link.ID]; ok {
			continue
		}
		seen[link.ID] = struct{}{}
		requests = append(requests, types.WriteRequest{
			DeleteRequest: &types.DeleteRequest{Key: s.primaryKey(link.ID)},
		})
	}

	for start := 0; start < len(requests); start += batchWriteSize {
		end := min(start+batchWriteSize, len(requests))
		if err := s.batchWrite(ctx, requests[start:end]); err != nil {
			return start, err
		}
	}

	return len(requests), nil
}

func (s *LinkStore) batchWrite(ctx context.Context, requests []types.WriteRequest) error {
	pending := map[string][]types.WriteRequest{s.tableName: requests}

	for attempt := 0; attempt < maxBatchRetry && len(pending[s.tableName]) > 0; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<attempt) * 50 * time.Millisecond
			select {
			case <-ctx.Done():
				return apperrors.NewStorageError("delete_by_entity", ctx.Err())
			case <-time.After(backoff):
			}
		}

		out, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{RequestItems: pending})
		if err != nil {
			return storageError("delete_by_entity", err)
		}
		pending = out.UnprocessedItems
	}

	if left := len(pending[s.tableName]); left > 0 {
		s.logger.Error("Unprocessed link deletes after retries", zap.Int("remaining", left))
		return apperrors.NewStorageError("delete_by_entity", fmt.Errorf("%d deletes left unprocessed", left))
	}
	return nil
}

// Ping checks the table is reachable
func (s *LinkStore) Ping(ctx context.Context) error {
	if _, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.tableName)}); err != nil {
		return storageError("ping", err)
	}
	return nil
}

// filteredQuery builds a query over the index that serves filter, pushing the
// remaining fields into a filter expression
func (s *LinkStore) filteredQuery(filter ports.LinkFilter, count bool) (*dynamodb.QueryInput, error) {
	plan := planQuery(filter, s.indexes)

	var residual *expression.ConditionBuilder
	if conds := residualConditions(plan.Residual); len(conds) == 1 {
		residual = &conds[0]
	} else if len(conds) > 1 {
		c := expression.And(conds[0], conds[1], conds[2:]...)
		residual = &c
	}

	return s.indexQuery(plan.Index, plan.KeyAttr, plan.KeyValue, residual, count)
}

func (s *LinkStore) indexQuery(index, keyAttr, keyValue string, filter *expression.ConditionBuilder, count bool) (*dynamodb.QueryInput, error) {
	builder := expression.NewBuilder().
		WithKeyCondition(expression.Key(keyAttr).Equal(expression.Value(keyValue)))
	if filter != nil {
		builder = builder.WithFilter(*filter)
	}
	expr, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(s.tableName),
		IndexName:                 aws.String(index),
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(false),
	}
	if count {
		input.Select = types.SelectCount
	}
	return input, nil
}

// collect pages through input, dropping the first skip items and stopping
// after take items. A negative take reads every page.
func (s *LinkStore) collect(ctx context.Context, operation string, input *dynamodb.QueryInput, skip, take int) ([]*entities.Link, error) {
	links := make([]*entities.Link, 0)
	paginator := dynamodb.NewQueryPaginator(s.client, input)

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, storageError(operation, err)
		}

		var items []linkItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, apperrors.NewStorageError(operation, err)
		}

		for _, item := range items {
			if skip > 0 {
				skip--
				continue
			}
			link, err := item.toEntity()
			if err != nil {
				return nil, apperrors.NewStorageError(operation, err)
			}
			links = append(links, link)
			if take >= 0 && len(links) >= take {
				return links, nil
			}
		}
	}
	return links, nil
}

// queryPlan is the index, partition key and leftover filter for a listing
type queryPlan struct {
	Index    string
	KeyAttr  string
	KeyValue string
	Residual ports.LinkFilter
}

// planQuery picks the narrowest index for filter. A complete source pair uses
// GSI1, a complete target pair GSI2, anything else the all-links GSI3.
func planQuery(filter ports.LinkFilter, indexes Indexes) queryPlan {
	switch {
	case filter.SourceType != "" && filter.SourceID != "":
		residual := filter
		residual.SourceType, residual.SourceID = "", ""
		return queryPlan{
			Index:    indexes.BySource,
			KeyAttr:  "GSI1PK",
			KeyValue: sourcePK(valueobjects.EntityRef{Type: filter.SourceType, ID: filter.SourceID}),
			Residual: residual,
		}
	case filter.TargetType != "" && filter.TargetID != "":
		residual := filter
		residual.TargetType, residual.TargetID = "", ""
		return queryPlan{
			Index:    indexes.ByTarget,
			KeyAttr:  "GSI2PK",
			KeyValue: targetPK(valueobjects.EntityRef{Type: filter.TargetType, ID: filter.TargetID}),
			Residual: residual,
		}
	default:
		return queryPlan{
			Index:    indexes.All,
			KeyAttr:  "GSI3PK",
			KeyValue: allLinksPK,
			Residual: filter,
		}
	}
}

func residualConditions(filter ports.LinkFilter) []expression.ConditionBuilder {
	var conds []expression.ConditionBuilder
	add := func(attr, value string) {
		if value != "" {
			conds = append(conds, expression.Name(attr).Equal(expression.Value(value)))
		}
	}
	add("SourceType", string(filter.SourceType))
	add("SourceID", filter.SourceID)
	add("TargetType", string(filter.TargetType))
	add("TargetID", filter.TargetID)
	return conds
}

// storageError wraps err, keeping the AWS error code when there is one
func storageError(operation string, err error) error {
	appErr := apperrors.NewStorageError(operation, err)

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		appErr = appErr.WithDetails(map[string]interface{}{
			"aws_code":  code,
			"retryable": strings.Contains(code, "Throttl") || code == "ProvisionedThroughputExceededException",
		})
	}
	return appErr
}
