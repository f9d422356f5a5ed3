// Package plaid provides a client for interacting with the Plaid API.
package plaid

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/plaid/plaid-go/v20/plaid"

	"github.com/tallyhq/tally/internal/common"
	"github.com/tallyhq/tally/internal/model"
)

// Config holds Plaid API configuration.
type Config struct {
	ClientID    string
	Secret      string
	Environment string // sandbox or production
	AccessToken string
}

// Validate ensures all required fields are present.
func (c *Config) Validate() error {
	if c.ClientID == "" {
		return fmt.Errorf("%w: plaid client ID is required", common.ErrInvalidConfig)
	}
	if c.Secret == "" {
		return fmt.Errorf("%w: plaid secret is required", common.ErrInvalidConfig)
	}
	if c.AccessToken == "" {
		return fmt.Errorf("%w: plaid access token is required", common.ErrInvalidConfig)
	}
	return validateEnvironment(c.Environment)
}

func validateEnvironment(env string) error {
	switch env {
	case "":
		return fmt.Errorf("%w: plaid environment is required", common.ErrInvalidConfig)
	case "sandbox", "production":
		return nil
	default:
		return fmt.Errorf("%w: invalid Plaid environment: must be sandbox or production", common.ErrInvalidConfig)
	}
}

// Client fetches transactions and accounts from Plaid.
type Client struct {
	client      *plaid.APIClient
	logger      *slog.Logger
	retryOpts   *common.RetryOptions
	accessToken string
	environment string
}

// NewClient creates a new Plaid client with the given configuration. The
// access token may be empty for the Link flow; it is required before any
// data calls.
func NewClient(cfg Config) (*Client, error) {
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("%w: plaid client ID is required", common.ErrInvalidConfig)
	}
	if cfg.Secret == "" {
		return nil, fmt.Errorf("%w: plaid secret is required", common.ErrInvalidConfig)
	}
	if err := validateEnvironment(cfg.Environment); err != nil {
		return nil, err
	}

	configuration := plaid.NewConfiguration()
	configuration.AddDefaultHeader("PLAID-CLIENT-ID", cfg.ClientID)
	configuration.AddDefaultHeader("PLAID-SECRET", cfg.Secret)

	switch cfg.Environment {
	case "sandbox":
		configuration.UseEnvironment(plaid.Sandbox)
	case "production":
		configuration.UseEnvironment(plaid.Production)
	}

	return &Client{
		client:      plaid.NewAPIClient(configuration),
		accessToken: cfg.AccessToken,
		environment: cfg.Environment,
		logger:      slog.Default().With("component", "plaid"),
		retryOpts: &common.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: 1 * time.Second,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
		},
	}, nil
}

// SetAccessToken points the client at a different item.
func (c *Client) SetAccessToken(token string) {
	c.accessToken = token
}

// GetTransactions fetches all transactions within the date range, paging
// through Plaid's API as needed.
func (c *Client) GetTransactions(ctx context.Context, startDate, endDate time.Time) ([]model.Transaction, error) {
	if c.accessToken == "" {
		return nil, common.ErrNoAccessToken
	}
	if startDate.After(endDate) {
		return nil, fmt.Errorf("start date must be before end date")
	}

	c.logger.Info("fetching transactions from Plaid",
		"start_date", startDate.Format("2006-01-02"),
		"end_date", endDate.Format("2006-01-02"))

	var all []plaid.Transaction
	offset := int32(0)
	const pageSize = int32(500) // Plaid's max page size

	for {
		var batch []plaid.Transaction

		retryErr := common.WithRetry(ctx, func() error {
			request := plaid.NewTransactionsGetRequest(
				c.accessToken,
				startDate.Format("2006-01-02"),
				endDate.Format("2006-01-02"),
			)
			request.SetOptions(plaid.TransactionsGetRequestOptions{
				Count:  plaid.PtrInt32(pageSize),
				Offset: plaid.PtrInt32(offset),
			})

			resp, _, err := c.client.PlaidApi.TransactionsGet(ctx).TransactionsGetRequest(*request).Execute()
			if err != nil {
				return c.wrapAPIError(err, "failed to fetch transactions")
			}

			batch = resp.GetTransactions()
			c.logger.Debug("fetched transaction batch",
				"count", len(batch),
				"offset", offset,
				"total", resp.GetTotalTransactions())
			return nil
		}, *c.retryOpts)

		if retryErr != nil {
			return nil, retryErr
		}

		all = append(all, batch...)
		if len(batch) < int(pageSize) {
			break
		}
		offset += pageSize
	}

	c.logger.Info("fetched all transactions", "count", len(all))

	transactions := make([]model.Transaction, 0, len(all))
	for _, pt := range all {
		transactions = append(transactions, c.mapTransaction(pt))
	}
	return transactions, nil
}

// GetAccounts fetches account IDs for the connected item.
func (c *Client) GetAccounts(ctx context.Context) ([]string, error) {
	if c.accessToken == "" {
		return nil, common.ErrNoAccessToken
	}

	var accounts []plaid.AccountBase
	retryErr := common.WithRetry(ctx, func() error {
		request := plaid.NewAccountsGetRequest(c.accessToken)
		resp, _, err := c.client.PlaidApi.AccountsGet(ctx).AccountsGetRequest(*request).Execute()
		if err != nil {
			return c.wrapAPIError(err, "failed to fetch accounts")
		}
		accounts = resp.GetAccounts()
		return nil
	}, *c.retryOpts)

	if retryErr != nil {
		return nil, retryErr
	}

	ids := make([]string, 0, len(accounts))
	for _, account := range accounts {
		ids = append(ids, account.GetAccountId())
	}
	return ids, nil
}

// mapTransaction converts a Plaid transaction to the internal model.
// Plaid reports positive amounts for money out, negative for money in;
// internally the amount is a magnitude and IsDebit carries the direction.
func (c *Client) mapTransaction(pt plaid.Transaction) model.Transaction {
	date, err := time.Parse("2006-01-02", pt.GetDate())
	if err != nil {
		c.logger.Error("failed to parse transaction date", "date", pt.GetDate(), "error", err)
		date = time.Now()
	}

	merchant := pt.GetMerchantName()
	if merchant == "" {
		merchant = pt.GetName()
	}
	merchant = cleanMerchantName(merchant)

	var category, subcategory string
	if hierarchy := pt.GetCategory(); len(hierarchy) > 0 {
		category = hierarchy[0]
		if len(hierarchy) > 1 {
			subcategory = hierarchy[1]
		}
	}

	amount := pt.GetAmount()
	isDebit := amount >= 0
	if amount < 0 {
		amount = -amount
	}

	return model.Transaction{
		Date:        date,
		ID:          pt.GetTransactionId(),
		Merchant:    merchant,
		Category:    category,
		Subcategory: subcategory,
		AccountID:   pt.GetAccountId(),
		Amount:      amount,
		IsDebit:     isDebit,
	}
}

// cleanMerchantName standardizes merchant names: title case, trailing
// reference numbers stripped, common corporate suffixes removed.
func cleanMerchantName(name string) string {
	words := strings.Fields(strings.ToLower(name))
	for i, word := range words {
		runes := []rune(word)
		for j := 0; j < len(runes); j++ {
			if j == 0 || !isLetter(runes[j-1]) {
				runes[j] = toUpper(runes[j])
			}
		}
		words[i] = string(runes)
	}

	// A long all-digit tail is a processor reference, not part of the name.
	if len(words) > 1 {
		last := words[len(words)-1]
		if len(last) > 5 && isAllDigits(last) {
			words = words[:len(words)-1]
		}
	}
	name = strings.Join(words, " ")

	suffixes := []string{
		" Llc",
		" Inc",
		" Corp",
		" Corporation",
		" Company",
		" Co",
		" Ltd",
		" Limited",
	}
	changed := true
	for changed {
		changed = false
		for _, suffix := range suffixes {
			if strings.HasSuffix(name, suffix) {
				name = strings.TrimSuffix(name, suffix)
				changed = true
			}
		}
	}

	return strings.TrimSpace(name)
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func toUpper(r rune) rune {
	if r >= 'a' && r <= 'z' {
		return r - 32
	}
	return r
}

// wrapAPIError translates a plaid-go error, flagging rate limits as
// retryable so WithRetry backs off instead of failing.
func (c *Client) wrapAPIError(err error, msg string) error {
	if plaidError := extractPlaidError(err); plaidError != nil {
		if plaidError.ErrorCode == "RATE_LIMIT_EXCEEDED" {
			c.logger.Warn("rate limit hit, will retry", "error", plaidError.ErrorMessage)
			return &common.RetryableError{Err: err, Retryable: true}
		}
		return fmt.Errorf("plaid API error: %s - %s", plaidError.ErrorCode, plaidError.ErrorMessage)
	}
	return fmt.Errorf("%w: %s: %w", common.ErrPlaidConnection, msg, err)
}

func extractPlaidError(err error) *plaid.PlaidError {
	plaidErr, convErr := plaid.ToPlaidError(err)
	if convErr != nil {
		return nil
	}
	return &plaidErr
}

// CreateLinkToken creates a Link token for Plaid Link initialization.
func (c *Client) CreateLinkToken(ctx context.Context) (string, error) {
	user := plaid.LinkTokenCreateRequestUser{
		ClientUserId: "tally-user-" + time.Now().Format("20060102150405"),
	}

	request := plaid.NewLinkTokenCreateRequest(
		"Tally",
		"en",
		[]plaid.CountryCode{plaid.COUNTRYCODE_US},
		user,
	)
	request.SetProducts([]plaid.Products{plaid.PRODUCTS_TRANSACTIONS})

	// OAuth banks require a redirect URI in production; it must match the
	// Plaid dashboard configuration.
	if c.environment == "production" {
		request.SetRedirectUri("https://localhost:8080/")
	}

	resp, _, err := c.client.PlaidApi.LinkTokenCreate(ctx).LinkTokenCreateRequest(*request).Execute()
	if err != nil {
		return "", c.wrapAPIError(err, "failed to create link token")
	}
	return resp.GetLinkToken(), nil
}

// ExchangePublicToken exchanges a public token from Link for an access
// token and item ID.
func (c *Client) ExchangePublicToken(ctx context.Context, publicToken string) (string, string, error) {
	request := plaid.NewItemPublicTokenExchangeRequest(publicToken)
	resp, _, err := c.client.PlaidApi.ItemPublicTokenExchange(ctx).ItemPublicTokenExchangeRequest(*request).Execute()
	if err != nil {
		return "", "", c.wrapAPIError(err, "failed to exchange public token")
	}
	return resp.GetAccessToken(), resp.GetItemId(), nil
}

// Institution represents a bank or financial institution.
type Institution struct {
	ID                   string
	Name                 string
	OAuth                bool
	SupportsTransactions bool
}

// SearchInstitutions searches for financial institutions by name.
func (c *Client) SearchInstitutions(ctx context.Context, query string, limit int) ([]Institution, error) {
	request := plaid.NewInstitutionsSearchRequest(
		query,
		[]plaid.CountryCode{plaid.COUNTRYCODE_US},
	)
	request.SetProducts([]plaid.Products{plaid.PRODUCTS_TRANSACTIONS})
	request.SetOptions(plaid.InstitutionsSearchRequestOptions{
		IncludeOptionalMetadata: plaid.PtrBool(true),
	})

	resp, _, err := c.client.PlaidApi.InstitutionsSearch(ctx).InstitutionsSearchRequest(*request).Execute()
	if err != nil {
		return nil, c.wrapAPIError(err, "failed to search institutions")
	}

	// The API has no limit parameter; apply it client side.
	institutions := make([]Institution, 0, limit)
	for i, inst := range resp.GetInstitutions() {
		if i >= limit {
			break
		}
		supportsTransactions := false
		for _, product := range inst.GetProducts() {
			if product == plaid.PRODUCTS_TRANSACTIONS {
				supportsTransactions = true
				break
			}
		}
		institutions = append(institutions, Institution{
			ID:                   inst.GetInstitutionId(),
			Name:                 inst.GetName(),
			OAuth:                inst.GetOauth(),
			SupportsTransactions: supportsTransactions,
		})
	}
	return institutions, nil
}

var _ TransactionFetcher = (*Client)(nil)
