package services

import (
  "context"
  "encoding/json"
  "fmt"
  "time"

  "github.com/google/uuid"
  "github.com/stripe/stripe-go/v79"
  checkoutsession "github.com/stripe/stripe-go/v79/checkout/session"
  "github.com/stripe/stripe-go/v79/customer"
  stripesub "github.com/stripe/stripe-go/v79/subscription"
  "github.com/stripe/stripe-go/v79/webhook"

  "github.com/studyforge/studyforge-backend/internal/logger"
  "github.com/studyforge/studyforge-backend/internal/repos"
  "github.com/studyforge/studyforge-backend/internal/types"
  "github.com/studyforge/studyforge-backend/internal/utils"
)

// BillingService manages Stripe subscriptions. Stripe webhooks, not
// checkout redirects, are the source of truth for subscription state.
type BillingService interface {
  CreateCheckoutSession(ctx context.Context, user *types.User, priceID string) (string, error)
  CancelSubscription(ctx context.Context, userID uuid.UUID) (*types.Subscription, error)
  CurrentSubscription(ctx context.Context, userID uuid.UUID) (*types.Subscription, error)
  HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

type billingService struct {
  log      *logger.Logger
  userRepo repos.UserRepo
  subRepo  repos.SubscriptionRepo

  webhookSecret string
  successURL    string
  cancelURL     string
}

func NewBillingService(log *logger.Logger, userRepo repos.UserRepo, subRepo repos.SubscriptionRepo) (BillingService, error) {
  apiKey := utils.GetEnv("STRIPE_SECRET_KEY", "", log)
  if apiKey == "" {
    return nil, fmt.Errorf("missing STRIPE_SECRET_KEY")
  }
  stripe.Key = apiKey

  webhookSecret := utils.GetEnv("STRIPE_WEBHOOK_SECRET", "", log)
  frontendURL := utils.GetEnv("FRONTEND_URL", "http://localhost:3000", log)

  return &billingService{
    log:           log.With("service", "BillingService"),
    userRepo:      userRepo,
    subRepo:       subRepo,
    webhookSecret: webhookSecret,
    successURL:    frontendURL + "/billing/success?session_id={CHECKOUT_SESSION_ID}",
    cancelURL:     frontendURL + "/billing/cancelled",
  }, nil
}

// CreateCheckoutSession returns the hosted checkout URL for a subscription
// purchase, creating the Stripe customer on first use.
func (s *billingService) CreateCheckoutSession(ctx context.Context, user *types.User, priceID string) (string, error) {
  if user == nil {
    return "", fmt.Errorf("nil user")
  }
  if priceID == "" {
    return "", fmt.Errorf("price id is required")
  }

  customerID, err := s.ensureStripeCustomer(ctx, user)
  if err != nil {
    return "", err
  }

  params := &stripe.CheckoutSessionParams{
    Customer: stripe.String(customerID),
    Mode:     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
    LineItems: []*stripe.CheckoutSessionLineItemParams{
      {
        Price:    stripe.String(priceID),
        Quantity: stripe.Int64(1),
      },
    },
    SuccessURL: stripe.String(s.successURL),
    CancelURL:  stripe.String(s.cancelURL),
  }
  params.Context = ctx

  sess, err := checkoutsession.New(params)
  if err != nil {
    return "", fmt.Errorf("create checkout session: %w", err)
  }
  return sess.URL, nil
}

func (s *billingService) ensureStripeCustomer(ctx context.Context, user *types.User) (string, error) {
  if user.StripeCustomerID != "" {
    return user.StripeCustomerID, nil
  }

  params := &stripe.CustomerParams{
    Email: stripe.String(user.Email),
    Name:  stripe.String(user.Username),
  }
  params.Context = ctx
  params.AddMetadata("user_id", user.ID.String())

  cust, err := customer.New(params)
  if err != nil {
    return "", fmt.Errorf("create stripe customer: %w", err)
  }

  if err := s.userRepo.UpdateFields(ctx, nil, user.ID, map[string]interface{}{
    "stripe_customer_id": cust.ID,
  }); err != nil {
    return "", fmt.Errorf("store stripe customer id: %w", err)
  }
  user.StripeCustomerID = cust.ID
  return cust.ID, nil
}

// CancelSubscription flags the active subscription to end at the current
// period boundary. Access continues until then.
func (s *billingService) CancelSubscription(ctx context.Context, userID uuid.UUID) (*types.Subscription, error) {
  sub, err := s.subRepo.GetActiveByUserID(ctx, nil, userID)
  if err != nil {
    return nil, err
  }
  if sub == nil {
    return nil, fmt.Errorf("no active subscription")
  }

  params := &stripe.SubscriptionParams{
    CancelAtPeriodEnd: stripe.Bool(true),
  }
  params.Context = ctx
  if _, err := stripesub.Update(sub.StripeSubscriptionID, params); err != nil {
    return nil, fmt.Errorf("cancel stripe subscription: %w", err)
  }

  now := time.Now()
  if err := s.subRepo.UpdateFields(ctx, nil, sub.ID, map[string]interface{}{
    "cancelled_at": now,
  }); err != nil {
    return nil, err
  }
  sub.CancelledAt = &now
  return sub, nil
}

func (s *billingService) CurrentSubscription(ctx context.Context, userID uuid.UUID) (*types.Subscription, error) {
  return s.subRepo.GetActiveByUserID(ctx, nil, userID)
}

// HandleWebhook verifies the event signature and applies the state change.
// Events the service does not care about are acknowledged and dropped.
func (s *billingService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
  if s.webhookSecret == "" {
    return fmt.Errorf("webhook secret not configured")
  }

  event, err := webhook.ConstructEvent(payload, signature, s.webhookSecret)
  if err != nil {
    return fmt.Errorf("webhook signature verification: %w", err)
  }

  switch event.Type {
  case "checkout.session.completed":
    return s.onCheckoutCompleted(ctx, event)
  case "customer.subscription.updated":
    return s.onSubscriptionUpdated(ctx, event)
  case "customer.subscription.deleted":
    return s.onSubscriptionDeleted(ctx, event)
  default:
    s.log.Debug("Ignoring stripe event", "type", event.Type)
    return nil
  }
}

func (s *billingService) onCheckoutCompleted(ctx context.Context, event stripe.Event) error {
  var sess stripe.CheckoutSession
  if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
    return fmt.Errorf("decode checkout session: %w", err)
  }
  if sess.Customer == nil || sess.Subscription == nil {
    s.log.Warn("Checkout completed without customer or subscription", "session_id", sess.ID)
    return nil
  }

  user, err := s.userRepo.GetByStripeCustomerID(ctx, nil, sess.Customer.ID)
  if err != nil {
    return err
  }
  if user == nil {
    s.log.Warn("Checkout completed for unknown customer", "customer_id", sess.Customer.ID)
    return nil
  }

  params := &stripe.SubscriptionParams{}
  params.Context = ctx
  stripeSub, err := stripesub.Get(sess.Subscription.ID, params)
  if err != nil {
    return fmt.Errorf("fetch subscription: %w", err)
  }

  return s.applySubscription(ctx, user, stripeSub)
}

func (s *billingService) onSubscriptionUpdated(ctx context.Context, event stripe.Event) error {
  var stripeSub stripe.Subscription
  if err := json.Unmarshal(event.Data.Raw, &stripeSub); err != nil {
    return fmt.Errorf("decode subscription: %w", err)
  }
  if stripeSub.Customer == nil {
    return nil
  }

  user, err := s.userRepo.GetByStripeCustomerID(ctx, nil, stripeSub.Customer.ID)
  if err != nil {
    return err
  }
  if user == nil {
    s.log.Warn("Subscription update for unknown customer", "customer_id", stripeSub.Customer.ID)
    return nil
  }
  return s.applySubscription(ctx, user, &stripeSub)
}

func (s *billingService) onSubscriptionDeleted(ctx context.Context, event stripe.Event) error {
  var stripeSub stripe.Subscription
  if err := json.Unmarshal(event.Data.Raw, &stripeSub); err != nil {
    return fmt.Errorf("decode subscription: %w", err)
  }

  sub, err := s.subRepo.GetByStripeSubscriptionID(ctx, nil, stripeSub.ID)
  if err != nil {
    return err
  }
  if sub != nil {
    now := time.Now()
    if err := s.subRepo.UpdateFields(ctx, nil, sub.ID, map[string]interface{}{
      "status":       "cancelled",
      "cancelled_at": now,
    }); err != nil {
      return err
    }
  }

  if stripeSub.Customer != nil {
    user, err := s.userRepo.GetByStripeCustomerID(ctx, nil, stripeSub.Customer.ID)
    if err != nil {
      return err
    }
    if user != nil {
      return s.userRepo.UpdateFields(ctx, nil, user.ID, map[string]interface{}{
        "subscription_status":   "free",
        "subscription_end_date": nil,
      })
    }
  }
  return nil
}

// applySubscription upserts the local subscription row and mirrors the
// status onto the user.
func (s *billingService) applySubscription(ctx context.Context, user *types.User, stripeSub *stripe.Subscription) error {
  start := time.Unix(stripeSub.CurrentPeriodStart, 0)
  end := time.Unix(stripeSub.CurrentPeriodEnd, 0)
  status := string(stripeSub.Status)

  var priceID, currency, interval string
  var amount int64
  if stripeSub.Items != nil && len(stripeSub.Items.Data) > 0 && stripeSub.Items.Data[0].Price != nil {
    price := stripeSub.Items.Data[0].Price
    priceID = price.ID
    amount = price.UnitAmount
    currency = string(price.Currency)
    if price.Recurring != nil {
      interval = string(price.Recurring.Interval)
    }
  }

  planType := "premium"
  if interval == "year" {
    planType = "premium_yearly"
  }

  existing, err := s.subRepo.GetByStripeSubscriptionID(ctx, nil, stripeSub.ID)
  if err != nil {
    return err
  }
  if existing == nil {
    _, err = s.subRepo.Create(ctx, nil, []*types.Subscription{{
      UserID:               user.ID,
      StripeSubscriptionID: stripeSub.ID,
      StripePriceID:        priceID,
      Status:               status,
      PlanType:             planType,
      Amount:               amount,
      Currency:             currency,
      Interval:             interval,
      StartDate:            start,
      EndDate:              end,
    }})
    if err != nil {
      return fmt.Errorf("persist subscription: %w", err)
    }
  } else {
    updates := map[string]interface{}{
      "status":          status,
      "stripe_price_id": priceID,
      "amount":          amount,
      "currency":        currency,
      "interval":        interval,
      "start_date":      start,
      "end_date":        end,
    }
    if stripeSub.CancelAtPeriodEnd && existing.CancelledAt == nil {
      updates["cancelled_at"] = time.Now()
    }
    if err := s.subRepo.UpdateFields(ctx, nil, existing.ID, updates); err != nil {
      return fmt.Errorf("update subscription: %w", err)
    }
  }

  userStatus := "free"
  if status == "active" || status == "trialing" {
    userStatus = "active"
  }
  return s.userRepo.UpdateFields(ctx, nil, user.ID, map[string]interface{}{
    "subscription_status":   userStatus,
    "subscription_end_date": end,
  })
}
