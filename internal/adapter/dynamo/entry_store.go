package dynamo

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"qrmatch/internal/domain"
)

// EntryStore keeps entries in a DynamoDB table.
//
// Table schema:
//   - Partition key: id (string)
//   - text (string), fingerprint (binary, little-endian float32), created_at (number, unix nanos)
//
// Create table with:
//
//	aws dynamodb create-table \
//	  --table-name qrmatch-entries \
//	  --attribute-definitions AttributeName=id,AttributeType=S \
//	  --key-schema AttributeName=id,KeyType=HASH \
//	  --billing-mode PAY_PER_REQUEST
type EntryStore struct {
	client    Client
	table     string
	dimension int
}

// Client is the subset of the DynamoDB API the store uses.
type Client interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// NewEntryStore returns a store over table. A positive dimension makes Insert
// reject fingerprints of any other length.
func NewEntryStore(client Client, table string, dimension int) *EntryStore {
	return &EntryStore{
		client:    client,
		table:     table,
		dimension: dimension,
	}
}

// NewClient builds a DynamoDB client from the default AWS credential chain.
// A custom endpoint (dynamodb-local) without credentials in the environment
// gets static dummy credentials.
func NewClient(ctx context.Context, region, endpoint string) (*dynamodb.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	if endpoint != "" && os.Getenv("AWS_ACCESS_KEY_ID") == "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider("local", "local", "")))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	}), nil
}

func (s *EntryStore) Insert(ctx context.Context, entry domain.Entry) error {
	if s.dimension > 0 && len(entry.Fingerprint) != s.dimension {
		return &domain.DimensionMismatchError{Expected: s.dimension, Actual: len(entry.Fingerprint)}
	}

	_, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.table),
		Item:                encodeItem(entry),
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	if err == nil {
		return nil
	}

	var ccf *types.ConditionalCheckFailedException
	if !errors.As(err, &ccf) {
		return fmt.Errorf("put entry %s: %w", entry.ID, err)
	}

	existing, err := s.Get(ctx, entry.ID)
	if err != nil {
		return err
	}
	if existing.Text == entry.Text {
		return nil
	}
	return fmt.Errorf("%w: %s", domain.ErrDuplicateID, entry.ID)
}

func (s *EntryStore) Get(ctx context.Context, id string) (domain.Entry, error) {
	resp, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return domain.Entry{}, fmt.Errorf("get entry %s: %w", id, err)
	}
	if len(resp.Item) == 0 {
		return domain.Entry{}, fmt.Errorf("entry %s: %w", id, domain.ErrNotFound)
	}
	return decodeItem(resp.Item)
}

func (s *EntryStore) ListAll(ctx context.Context) ([]domain.Entry, error) {
	var entries []domain.Entry

	p := dynamodb.NewScanPaginator(s.client, &dynamodb.ScanInput{
		TableName: aws.String(s.table),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan entries: %w", err)
		}
		for _, item := range page.Items {
			entry, err := decodeItem(item)
			if err != nil {
				return nil, err
			}
			entries = append(entries, entry)
		}
	}

	return entries, nil
}

func (s *EntryStore) Count(ctx context.Context) (int, error) {
	var n int

	p := dynamodb.NewScanPaginator(s.client, &dynamodb.ScanInput{
		TableName: aws.String(s.table),
		Select:    types.SelectCount,
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return 0, fmt.Errorf("count entries: %w", err)
		}
		n += int(page.Count)
	}

	return n, nil
}

func (s *EntryStore) Close() error {
	return nil
}

func encodeItem(entry domain.Entry) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"id":          &types.AttributeValueMemberS{Value: entry.ID},
		"text":        &types.AttributeValueMemberS{Value: entry.Text},
		"fingerprint": &types.AttributeValueMemberB{Value: encodeFingerprint(entry.Fingerprint)},
		"created_at":  &types.AttributeValueMemberN{Value: strconv.FormatInt(entry.CreatedAt.UnixNano(), 10)},
	}
}

func decodeItem(item map[string]types.AttributeValue) (domain.Entry, error) {
	id, ok := item["id"].(*types.AttributeValueMemberS)
	if !ok {
		return domain.Entry{}, errors.New("invalid id attribute in DynamoDB")
	}
	text, ok := item["text"].(*types.AttributeValueMemberS)
	if !ok {
		return domain.Entry{}, fmt.Errorf("entry %s: invalid text attribute", id.Value)
	}
	fp, ok := item["fingerprint"].(*types.AttributeValueMemberB)
	if !ok {
		return domain.Entry{}, fmt.Errorf("entry %s: invalid fingerprint attribute", id.Value)
	}
	created, ok := item["created_at"].(*types.AttributeValueMemberN)
	if !ok {
		return domain.Entry{}, fmt.Errorf("entry %s: invalid created_at attribute", id.Value)
	}

	nanos, err := strconv.ParseInt(created.Value, 10, 64)
	if err != nil {
		return domain.Entry{}, fmt.Errorf("entry %s: parse created_at: %w", id.Value, err)
	}
	vec, err := decodeFingerprint(fp.Value)
	if err != nil {
		return domain.Entry{}, fmt.Errorf("entry %s: %w", id.Value, err)
	}

	return domain.Entry{
		ID:          id.Value,
		Text:        text.Value,
		Fingerprint: vec,
		CreatedAt:   time.Unix(0, nanos).UTC(),
	}, nil
}

func encodeFingerprint(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(x))
	}
	return buf
}

func decodeFingerprint(buf []byte) ([]float32, error) {
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("fingerprint length %d is not a multiple of 4", len(buf))
	}
	v := make([]float32, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return v, nil
}
