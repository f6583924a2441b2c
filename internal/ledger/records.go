package ledger

import (
	"context"

	"github.com/payops-dev/payops/internal/model"
)

const listRecordsQuery = `
  query ListExpenses($account: AccountReferenceInput!, $limit: Int!, $status: ExpenseStatusFilter, $orderBy: ChronologicalOrderInput) {
    expenses(account: $account, limit: $limit, status: $status, orderBy: $orderBy) {
      totalCount
      nodes {
        id
        legacyId
        status
        amount
        description
        payee {
          slug
        }
        payoutMethod {
          id
          type
          name
          data
        }
      }
    }
  }
`

const createRecordMutation = `
  mutation CreateExpense($expense: ExpenseCreateInput!, $account: AccountReferenceInput!) {
    createExpense(expense: $expense, account: $account) {
      id
      legacyId
      status
    }
  }
`

const approveRecordMutation = `
  mutation ApproveExpense($expense: ExpenseReferenceInput!) {
    processExpense(expense: $expense, action: APPROVE) {
      id
      status
    }
  }
`

const payRecordMutation = `
  mutation PayExpense($expense: ExpenseReferenceInput!, $paymentParams: ProcessExpensePaymentParams!) {
    processExpense(expense: $expense, action: PAY, paymentParams: $paymentParams) {
      id
      status
    }
  }
`

// ListParams bounds the bulk record query.
type ListParams struct {
	AccountSlug string
	Limit       int
	Status      model.RecordStatus // zero value lists all statuses
	OldestFirst bool
}

// ListPayoutRecords performs the bulk list query. One call per run; per-row
// queries would blow the API's rate budget.
func (c *Client) ListPayoutRecords(ctx context.Context, params ListParams) ([]model.RemoteRecord, error) {
	variables := map[string]any{
		"account": map[string]any{"slug": params.AccountSlug},
		"limit":   params.Limit,
	}
	if params.Status != "" {
		variables["status"] = string(params.Status)
	}
	if params.OldestFirst {
		variables["orderBy"] = map[string]any{"field": "CREATED_AT", "direction": "ASC"}
	}

	var result struct {
		Expenses struct {
			TotalCount int                `json:"totalCount"`
			Nodes      []remoteRecordNode `json:"nodes"`
		} `json:"expenses"`
	}
	if err := c.do(ctx, listRecordsQuery, variables, "", &result); err != nil {
		return nil, err
	}

	records := make([]model.RemoteRecord, len(result.Expenses.Nodes))
	for i, node := range result.Expenses.Nodes {
		records[i] = node.toModel()
	}
	return records, nil
}

type remoteRecordNode struct {
	ID          string             `json:"id"`
	LegacyID    int64              `json:"legacyId"`
	Status      model.RecordStatus `json:"status"`
	Amount      int64              `json:"amount"`
	Description string             `json:"description"`
	Payee       struct {
		Slug string `json:"slug"`
	} `json:"payee"`
	PayoutMethod *model.PayoutMethod `json:"payoutMethod"`
}

func (n remoteRecordNode) toModel() model.RemoteRecord {
	return model.RemoteRecord{
		ID:               n.ID,
		LegacyID:         n.LegacyID,
		Status:           n.Status,
		AmountMinorUnits: n.Amount,
		Description:      n.Description,
		PayeeRef:         n.Payee.Slug,
		PayoutMethod:     n.PayoutMethod,
	}
}

// CreateInput describes one payout record to create.
type CreateInput struct {
	AccountSlug      string
	PayeeSlug        string
	Description      string
	Currency         string
	AmountMinorUnits int64
	PayoutCurrency   string
	CardToken        string
	HolderName       string
	Email            string
	Phone            string
	City             string
	Country          string
	PostalCode       string
	AddressLine      string
	Reference        string
}

// CreatePayoutRecord issues the create mutation. The remote API provides no
// idempotency key, so callers must not blindly retry this on failure.
func (c *Client) CreatePayoutRecord(ctx context.Context, input CreateInput, twoFactor string) (model.SubmissionResult, error) {
	variables := map[string]any{
		"account": map[string]any{"slug": input.AccountSlug},
		"expense": map[string]any{
			"type":        "INVOICE",
			"payee":       map[string]any{"slug": input.PayeeSlug},
			"currency":    input.Currency,
			"description": input.Description,
			"reference":   input.Reference,
			"items": []map[string]any{
				{
					"description": input.Description,
					"amount":      input.AmountMinorUnits,
				},
			},
			"payoutMethod": map[string]any{
				"type": "BANK_ACCOUNT",
				"data": map[string]any{
					"type":     "privatbank",
					"currency": input.PayoutCurrency,
					"details": map[string]any{
						"email":       input.Email,
						"phoneNumber": input.Phone,
						"cardToken":   input.CardToken,
						"address": map[string]any{
							"city":      input.City,
							"country":   input.Country,
							"postCode":  input.PostalCode,
							"firstLine": input.AddressLine,
						},
						"legalType": "PRIVATE",
					},
					"accountHolderName": input.HolderName,
				},
			},
		},
	}

	var result struct {
		CreateExpense struct {
			ID       string             `json:"id"`
			LegacyID int64              `json:"legacyId"`
			Status   model.RecordStatus `json:"status"`
		} `json:"createExpense"`
	}
	if err := c.do(ctx, createRecordMutation, variables, twoFactor, &result); err != nil {
		return model.SubmissionResult{}, err
	}

	return model.SubmissionResult{
		RemoteID: result.CreateExpense.ID,
		LegacyID: result.CreateExpense.LegacyID,
	}, nil
}

// ApprovePayoutRecord moves a created record to APPROVED.
func (c *Client) ApprovePayoutRecord(ctx context.Context, recordID string, twoFactor string) error {
	variables := map[string]any{
		"expense": map[string]any{"id": recordID},
	}
	return c.do(ctx, approveRecordMutation, variables, twoFactor, nil)
}

// PayPayoutRecord triggers payment of an APPROVED record. Fees are charged
// to the payee so parts of a split payout stay equal on the sending side.
func (c *Client) PayPayoutRecord(ctx context.Context, recordID string, twoFactor string) error {
	variables := map[string]any{
		"expense":       map[string]any{"id": recordID},
		"paymentParams": map[string]any{"feesPayer": "PAYEE"},
	}
	return c.do(ctx, payRecordMutation, variables, twoFactor, nil)
}
