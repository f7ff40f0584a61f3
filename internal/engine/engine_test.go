package engine_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"cuops/internal/config"
	"cuops/internal/db"
	"cuops/internal/domain"
	"cuops/internal/engine"
	"cuops/internal/ledger"
	"cuops/internal/migrate"
	"cuops/internal/repo"
)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	return newTestEnvWithConfig(t, config.Default())
}

func newTestEnvWithConfig(t *testing.T, cfg *config.Config) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, dialect, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn, dialect); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	eng := engine.New(conn, dialect, cfg)
	var mu sync.Mutex
	clock := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	eng.Now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		clock = clock.Add(time.Second)
		return clock
	}
	return testEnv{Engine: eng, Ctx: context.Background()}
}

func units(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func (env testEnv) customer(t *testing.T, name string) domain.Customer {
	t.Helper()
	c, err := env.Engine.CreateCustomer(env.Ctx, engine.CustomerInput{Name: name, ActorID: "tester"})
	if err != nil {
		t.Fatalf("create customer: %v", err)
	}
	return c
}

func (env testEnv) contract(t *testing.T, customerID, total string) domain.Contract {
	t.Helper()
	c, err := env.Engine.CreateContract(env.Ctx, engine.ContractCreateOptions{
		CustomerID:        customerID,
		Name:              "Retainer",
		Status:            domain.ContractActive,
		TotalContentUnits: units(total),
		StartDate:         "2025-01-01",
		EndDate:           "2025-12-31",
		ActorID:           "tester",
	})
	if err != nil {
		t.Fatalf("create contract: %v", err)
	}
	return c
}

func (env testEnv) idea(t *testing.T, customerID, title string) domain.Idea {
	t.Helper()
	i, err := env.Engine.SubmitIdea(env.Ctx, engine.IdeaInput{CustomerID: customerID, Title: title, Description: "body of " + title, ActorID: "tester"})
	if err != nil {
		t.Fatalf("submit idea: %v", err)
	}
	return i
}

func TestCommissionDebitsContract(t *testing.T) {
	env := newTestEnv(t)
	cust := env.customer(t, "Acme")
	contract := env.contract(t, cust.ID, "10")
	idea := env.idea(t, cust.ID, "Launch post")

	obj, err := env.Engine.Commission(env.Ctx, engine.CommissionOptions{
		IdeaID: idea.ID, ContentType: "article", ContractID: contract.ID, ContentUnits: units("2.5"), ActorID: "tester",
	})
	if err != nil {
		t.Fatalf("commission: %v", err)
	}
	if obj.WorkingTitle != idea.Title || obj.Body != idea.Description {
		t.Fatalf("content not copied from idea: %+v", obj)
	}
	if obj.CustomerID == nil || *obj.CustomerID != cust.ID {
		t.Fatalf("customer should be inferred from contract, got %v", obj.CustomerID)
	}
	if obj.DerivedStatus != ledger.StatusNoTasks {
		t.Fatalf("derived status = %s", obj.DerivedStatus)
	}
	got, err := env.Engine.GetContract(env.Ctx, contract.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Contract.UsedContentUnits.Equal(units("2.5")) || !got.Balance.Remaining.Equal(units("7.5")) {
		t.Fatalf("balance after commission: used=%s remaining=%s", got.Contract.UsedContentUnits, got.Balance.Remaining)
	}
	stored, err := env.Engine.GetIdea(env.Ctx, idea.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != domain.IdeaCommissioned {
		t.Fatalf("idea status = %s", stored.Status)
	}
	led, err := env.Engine.ContractLedger(env.Ctx, contract.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(led.Debits) != 1 || led.Debits[0].ContentObjectID != obj.ID {
		t.Fatalf("ledger debits = %+v", led.Debits)
	}
	evs, err := env.Engine.ListEvents(env.Ctx, repo.EventFilters{Type: "contract.debited"})
	if err != nil {
		t.Fatal(err)
	}
	if len(evs) != 1 || evs[0].EntityID != contract.ID {
		t.Fatalf("debit events = %+v", evs)
	}
}

func TestCommissionRejectsSecondAttempt(t *testing.T) {
	env := newTestEnv(t)
	cust := env.customer(t, "Acme")
	contract := env.contract(t, cust.ID, "10")
	idea := env.idea(t, cust.ID, "Once only")
	opts := engine.CommissionOptions{IdeaID: idea.ID, ContentType: "video", ContractID: contract.ID, ContentUnits: units("1")}
	if _, err := env.Engine.Commission(env.Ctx, opts); err != nil {
		t.Fatalf("first commission: %v", err)
	}
	if _, err := env.Engine.Commission(env.Ctx, opts); !errors.Is(err, domain.ErrPrecondition) {
		t.Fatalf("second commission err = %v, want precondition", err)
	}
	got, _ := env.Engine.GetContract(env.Ctx, contract.ID)
	if !got.Contract.UsedContentUnits.Equal(units("1")) {
		t.Fatalf("used = %s after rejected second commission", got.Contract.UsedContentUnits)
	}
	items, _ := env.Engine.ListContent(env.Ctx, engine.ContentFilters{})
	if len(items) != 1 {
		t.Fatalf("content objects = %d", len(items))
	}
}

func TestCommissionInsufficientBalanceIsAtomic(t *testing.T) {
	env := newTestEnv(t)
	cust := env.customer(t, "Acme")
	contract := env.contract(t, cust.ID, "1")
	idea := env.idea(t, cust.ID, "Too big")

	_, err := env.Engine.Commission(env.Ctx, engine.CommissionOptions{
		IdeaID: idea.ID, ContentType: "podcast", ContractID: contract.ID, ContentUnits: units("1.5"),
	})
	if !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Fatalf("err = %v, want insufficient balance", err)
	}
	stored, _ := env.Engine.GetIdea(env.Ctx, idea.ID)
	if stored.Status != domain.IdeaSubmitted {
		t.Fatalf("idea status = %s, want submitted", stored.Status)
	}
	got, _ := env.Engine.GetContract(env.Ctx, contract.ID)
	if !got.Contract.UsedContentUnits.IsZero() {
		t.Fatalf("used = %s", got.Contract.UsedContentUnits)
	}
	items, _ := env.Engine.ListContent(env.Ctx, engine.ContentFilters{})
	if len(items) != 0 {
		t.Fatalf("content created on failed commission")
	}
}

func TestCommissionOverdraftAllowedByConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Ledger.AllowOverdraft = true
	env := newTestEnvWithConfig(t, cfg)
	cust := env.customer(t, "Acme")
	contract := env.contract(t, cust.ID, "1")
	idea := env.idea(t, cust.ID, "Overdraw")
	if _, err := env.Engine.Commission(env.Ctx, engine.CommissionOptions{
		IdeaID: idea.ID, ContentType: "article", ContractID: contract.ID, ContentUnits: units("3"),
	}); err != nil {
		t.Fatalf("commission: %v", err)
	}
	got, _ := env.Engine.GetContract(env.Ctx, contract.ID)
	if !got.Balance.Remaining.Equal(units("-2")) || !got.Balance.OverBudget {
		t.Fatalf("balance = %+v", got.Balance)
	}
}

func TestCommissionValidation(t *testing.T) {
	env := newTestEnv(t)
	acme := env.customer(t, "Acme")
	other := env.customer(t, "Other")
	contract := env.contract(t, acme.ID, "5")
	idea := env.idea(t, "", "Unassigned")

	cases := []struct {
		name string
		opts engine.CommissionOptions
		want error
	}{
		{"unknown idea", engine.CommissionOptions{IdeaID: "missing", ContentType: "article"}, domain.ErrNotFound},
		{"bad type", engine.CommissionOptions{IdeaID: idea.ID, ContentType: "essay"}, domain.ErrInvalidInput},
		{"negative cost", engine.CommissionOptions{IdeaID: idea.ID, ContentType: "article", ContentUnits: units("-1")}, domain.ErrInvalidInput},
		{"three decimals", engine.CommissionOptions{IdeaID: idea.ID, ContentType: "article", ContentUnits: units("0.125")}, domain.ErrInvalidInput},
		{"unknown contract", engine.CommissionOptions{IdeaID: idea.ID, ContentType: "article", ContractID: "missing"}, domain.ErrNotFound},
		{"customer mismatch", engine.CommissionOptions{IdeaID: idea.ID, ContentType: "article", ContractID: contract.ID, CustomerID: other.ID}, domain.ErrInvalidInput},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := env.Engine.Commission(env.Ctx, tc.opts); !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
	stored, _ := env.Engine.GetIdea(env.Ctx, idea.ID)
	if stored.Status != domain.IdeaSubmitted {
		t.Fatalf("idea status changed to %s", stored.Status)
	}

	obj, err := env.Engine.Commission(env.Ctx, engine.CommissionOptions{IdeaID: idea.ID, ContentType: "thread", ContentUnits: units("2")})
	if err != nil {
		t.Fatalf("commission without contract: %v", err)
	}
	if obj.ContractID != nil || !obj.ContentUnits.Equal(units("2")) {
		t.Fatalf("uncharged commission = %+v", obj)
	}
}

func TestConcurrentCommissionsNeverOverdraw(t *testing.T) {
	env := newTestEnv(t)
	cust := env.customer(t, "Acme")
	contract := env.contract(t, cust.ID, "5")
	const n = 10
	ideas := make([]domain.Idea, n)
	for i := range ideas {
		ideas[i] = env.idea(t, cust.ID, "idea")
	}

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := range ideas {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.Engine.Commission(env.Ctx, engine.CommissionOptions{
				IdeaID: ideas[i].ID, ContentType: "graphic", ContractID: contract.ID, ContentUnits: units("1"),
			})
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrInsufficientBalance):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 5 {
		t.Fatalf("successful commissions = %d, want 5", ok)
	}
	got, _ := env.Engine.GetContract(env.Ctx, contract.ID)
	if !got.Contract.UsedContentUnits.Equal(units("5")) {
		t.Fatalf("used = %s, want 5", got.Contract.UsedContentUnits)
	}
}

func TestConcurrentCommissionOfSameIdea(t *testing.T) {
	env := newTestEnv(t)
	cust := env.customer(t, "Acme")
	contract := env.contract(t, cust.ID, "50")
	idea := env.idea(t, cust.ID, "Popular")

	const n = 5
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.Engine.Commission(env.Ctx, engine.CommissionOptions{
				IdeaID: idea.ID, ContentType: "article", ContractID: contract.ID, ContentUnits: units("2"),
			})
		}(i)
	}
	wg.Wait()
	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
		} else if !errors.Is(err, domain.ErrPrecondition) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 {
		t.Fatalf("successful commissions = %d, want 1", ok)
	}
	got, _ := env.Engine.GetContract(env.Ctx, contract.ID)
	if !got.Contract.UsedContentUnits.Equal(units("2")) {
		t.Fatalf("used = %s, want 2", got.Contract.UsedContentUnits)
	}
}

func TestIdeaTransitions(t *testing.T) {
	env := newTestEnv(t)
	idea := env.idea(t, "", "Draft idea")
	idea, err := env.Engine.ShortlistIdea(env.Ctx, idea.ID, "tester")
	if err != nil || idea.Status != domain.IdeaShortlisted {
		t.Fatalf("shortlist: %v %s", err, idea.Status)
	}
	if _, err := env.Engine.ShortlistIdea(env.Ctx, idea.ID, "tester"); !errors.Is(err, domain.ErrPrecondition) {
		t.Fatalf("double shortlist err = %v", err)
	}
	if _, err := env.Engine.ReopenIdea(env.Ctx, idea.ID, "tester"); !errors.Is(err, domain.ErrPrecondition) {
		t.Fatalf("reopen of shortlisted idea err = %v", err)
	}
	idea, err = env.Engine.RejectIdea(env.Ctx, idea.ID, "tester")
	if err != nil || idea.Status != domain.IdeaRejected {
		t.Fatalf("reject: %v", err)
	}
	if _, err := env.Engine.Commission(env.Ctx, engine.CommissionOptions{IdeaID: idea.ID, ContentType: "article"}); !errors.Is(err, domain.ErrPrecondition) {
		t.Fatalf("commission of rejected idea err = %v", err)
	}
	idea, err = env.Engine.ReopenIdea(env.Ctx, idea.ID, "tester")
	if err != nil || idea.Status != domain.IdeaSubmitted {
		t.Fatalf("reopen: %v", err)
	}
}

func TestIdeaUpdateDedupesTags(t *testing.T) {
	env := newTestEnv(t)
	idea := env.idea(t, "", "Tags")
	score := 7.5
	updated, err := env.Engine.UpdateIdea(env.Ctx, idea.ID, engine.IdeaPatch{
		TopicTags:           []string{"ai", " ai", "", "ops"},
		PredictedEngagement: &score,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(updated.TopicTags) != 2 || updated.TopicTags[0] != "ai" || updated.TopicTags[1] != "ops" {
		t.Fatalf("topic tags = %v", updated.TopicTags)
	}
	stored, _ := env.Engine.GetIdea(env.Ctx, idea.ID)
	if stored.PredictedEngagement == nil || *stored.PredictedEngagement != 7.5 || len(stored.StrategicTags) != 0 {
		t.Fatalf("stored idea = %+v", stored)
	}
}

func TestDeleteIdeaBlockedByContent(t *testing.T) {
	env := newTestEnv(t)
	idea := env.idea(t, "", "Keep me")
	if _, err := env.Engine.Commission(env.Ctx, engine.CommissionOptions{IdeaID: idea.ID, ContentType: "article"}); err != nil {
		t.Fatal(err)
	}
	if err := env.Engine.DeleteIdea(env.Ctx, idea.ID, "tester"); !errors.Is(err, domain.ErrPrecondition) {
		t.Fatalf("delete err = %v", err)
	}
	other := env.idea(t, "", "Drop me")
	if err := env.Engine.DeleteIdea(env.Ctx, other.ID, "tester"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := env.Engine.GetIdea(env.Ctx, other.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("get deleted idea err = %v", err)
	}
}

func commissionPlain(t *testing.T, env testEnv, customerID string) domain.ContentObject {
	t.Helper()
	idea := env.idea(t, customerID, "content")
	obj, err := env.Engine.Commission(env.Ctx, engine.CommissionOptions{IdeaID: idea.ID, ContentType: "article", CustomerID: customerID})
	if err != nil {
		t.Fatalf("commission: %v", err)
	}
	return obj
}

func TestTaskPipelineDrivesDerivedStatus(t *testing.T) {
	env := newTestEnv(t)
	obj := commissionPlain(t, env, "")

	first, err := env.Engine.AddTask(env.Ctx, engine.TaskCreateOptions{ContentObjectID: obj.ID, Title: "Draft"})
	if err != nil {
		t.Fatal(err)
	}
	second, err := env.Engine.AddTask(env.Ctx, engine.TaskCreateOptions{ContentObjectID: obj.ID, Title: "Edit"})
	if err != nil {
		t.Fatal(err)
	}
	if first.SortOrder != 0 || second.SortOrder != 1 {
		t.Fatalf("sort orders = %d, %d", first.SortOrder, second.SortOrder)
	}
	zero := 0
	early, err := env.Engine.AddTask(env.Ctx, engine.TaskCreateOptions{ContentObjectID: obj.ID, Title: "Research", SortOrder: &zero})
	if err != nil {
		t.Fatal(err)
	}
	tasks, err := env.Engine.ListTasks(env.Ctx, obj.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 3 || tasks[0].ID != first.ID || tasks[1].ID != early.ID || tasks[2].ID != second.ID {
		t.Fatalf("task order = %v", []string{tasks[0].Title, tasks[1].Title, tasks[2].Title})
	}

	status := func() string {
		t.Helper()
		detail, err := env.Engine.GetContent(env.Ctx, obj.ID)
		if err != nil {
			t.Fatal(err)
		}
		return detail.DerivedStatus
	}
	if got := status(); got != ledger.StatusNotStarted {
		t.Fatalf("status = %s", got)
	}
	toggled, err := env.Engine.ToggleTask(env.Ctx, first.ID, "tester")
	if err != nil {
		t.Fatal(err)
	}
	if toggled.Status != domain.TaskDone || toggled.CompletedAt == nil {
		t.Fatalf("toggled = %+v", toggled)
	}
	if got := status(); got != ledger.StatusInProgress {
		t.Fatalf("status = %s", got)
	}
	done := domain.TaskDone
	for _, id := range []string{early.ID, second.ID} {
		if _, err := env.Engine.UpdateTask(env.Ctx, engine.TaskUpdateOptions{ID: id, Status: &done}); err != nil {
			t.Fatal(err)
		}
	}
	if got := status(); got != ledger.StatusComplete {
		t.Fatalf("status = %s", got)
	}
	if _, err := env.Engine.SpikeContent(env.Ctx, obj.ID, "tester"); err != nil {
		t.Fatal(err)
	}
	if got := status(); got != ledger.StatusSpiked {
		t.Fatalf("status = %s", got)
	}
	if _, err := env.Engine.ResetContentStatus(env.Ctx, obj.ID, "tester"); err != nil {
		t.Fatal(err)
	}
	if got := status(); got != ledger.StatusComplete {
		t.Fatalf("status after reset = %s", got)
	}

	back, err := env.Engine.ToggleTask(env.Ctx, first.ID, "tester")
	if err != nil {
		t.Fatal(err)
	}
	if back.Status != domain.TaskTodo || back.CompletedAt != nil {
		t.Fatalf("toggled back = %+v", back)
	}
	bogus := "blocked"
	if _, err := env.Engine.UpdateTask(env.Ctx, engine.TaskUpdateOptions{ID: first.ID, Status: &bogus}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("invalid status err = %v", err)
	}
}

func TestPublishSetsPublishedAt(t *testing.T) {
	env := newTestEnv(t)
	obj := commissionPlain(t, env, "")
	pub, err := env.Engine.PublishContent(env.Ctx, obj.ID, "tester")
	if err != nil {
		t.Fatal(err)
	}
	if pub.DerivedStatus != ledger.StatusPublished || pub.PublishedAt == nil {
		t.Fatalf("published = %+v", pub)
	}
	counts, err := env.Engine.Pipeline(env.Ctx, ledger.All())
	if err != nil {
		t.Fatal(err)
	}
	if counts[ledger.StatusPublished] != 1 || counts[ledger.StatusNoTasks] != 0 || len(counts) != len(ledger.DisplayStatuses) {
		t.Fatalf("pipeline = %v", counts)
	}
}

func TestDeleteContentCascadesTasks(t *testing.T) {
	env := newTestEnv(t)
	obj := commissionPlain(t, env, "")
	task, err := env.Engine.AddTask(env.Ctx, engine.TaskCreateOptions{ContentObjectID: obj.ID, Title: "Draft"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.LinkPost(env.Ctx, obj.ID, "post-1", "linkedin", "tester"); err != nil {
		t.Fatal(err)
	}
	if err := env.Engine.DeleteContent(env.Ctx, obj.ID, "tester"); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.Repo.GetTask(env.Ctx, task.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("task survived delete: %v", err)
	}
	links, err := env.Engine.Repo.ListPostLinks(env.Ctx, obj.ID)
	if err != nil || len(links) != 0 {
		t.Fatalf("post links = %v, %v", links, err)
	}
}

func TestApplyTemplate(t *testing.T) {
	cfg := config.Default()
	cfg.Tasks.ApplyTemplateOnCommission = true
	env := newTestEnvWithConfig(t, cfg)
	obj := commissionPlain(t, env, "")
	want, _ := cfg.Template("article")
	if obj.TotalTasks != len(want) || obj.DerivedStatus != ledger.StatusNotStarted {
		t.Fatalf("commissioned object = %+v", obj)
	}
	added, err := env.Engine.ApplyTemplate(env.Ctx, obj.ID, "graphic", "tester")
	if err != nil {
		t.Fatal(err)
	}
	if added[0].SortOrder != len(want) {
		t.Fatalf("template tasks start at %d", added[0].SortOrder)
	}
	if _, err := env.Engine.ApplyTemplate(env.Ctx, obj.ID, "missing", "tester"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("unknown template err = %v", err)
	}
}

func TestCustomerScoping(t *testing.T) {
	env := newTestEnv(t)
	a := env.customer(t, "A")
	b := env.customer(t, "B")
	commissionPlain(t, env, a.ID)
	commissionPlain(t, env, a.ID)
	commissionPlain(t, env, b.ID)

	all, err := env.Engine.ListContent(env.Ctx, engine.ContentFilters{Scope: ledger.All()})
	if err != nil || len(all) != 3 {
		t.Fatalf("all = %d, %v", len(all), err)
	}
	onlyA, err := env.Engine.ListContent(env.Ctx, engine.ContentFilters{Scope: ledger.Customer(a.ID)})
	if err != nil || len(onlyA) != 2 {
		t.Fatalf("scoped = %d, %v", len(onlyA), err)
	}
	for _, c := range onlyA {
		if c.CustomerID == nil || *c.CustomerID != a.ID {
			t.Fatalf("foreign content in scope: %+v", c)
		}
	}
	ideas, err := env.Engine.ListIdeas(env.Ctx, ledger.Customer(b.ID), "")
	if err != nil || len(ideas) != 1 {
		t.Fatalf("ideas for b = %d, %v", len(ideas), err)
	}
	notStarted, err := env.Engine.ListContent(env.Ctx, engine.ContentFilters{Status: ledger.StatusNotStarted})
	if err != nil || len(notStarted) != 0 {
		t.Fatalf("status filter = %d, %v", len(notStarted), err)
	}
}

func TestDeleteCustomer(t *testing.T) {
	env := newTestEnv(t)
	cust := env.customer(t, "Gone")
	contract := env.contract(t, cust.ID, "3")
	obj := commissionPlain(t, env, cust.ID)

	if err := env.Engine.DeleteCustomer(env.Ctx, cust.ID, "tester"); !errors.Is(err, domain.ErrPrecondition) {
		t.Fatalf("delete with active contract err = %v", err)
	}
	if _, err := env.Engine.UpdateContractStatus(env.Ctx, contract.ID, domain.ContractCompleted, "tester"); err != nil {
		t.Fatal(err)
	}
	if err := env.Engine.DeleteCustomer(env.Ctx, cust.ID, "tester"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := env.Engine.GetCustomer(env.Ctx, cust.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("customer still present: %v", err)
	}
	detail, err := env.Engine.GetContent(env.Ctx, obj.ID)
	if err != nil {
		t.Fatalf("content removed with customer: %v", err)
	}
	if detail.CustomerID != nil {
		t.Fatalf("content still linked to %s", *detail.CustomerID)
	}
}

func TestContractValidationAndPreflight(t *testing.T) {
	env := newTestEnv(t)
	cust := env.customer(t, "Acme")
	_, err := env.Engine.CreateContract(env.Ctx, engine.ContractCreateOptions{
		CustomerID: cust.ID, Name: "Backwards", TotalContentUnits: units("1"), StartDate: "2025-12-01", EndDate: "2025-01-01",
	})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("start after end err = %v", err)
	}
	draft, err := env.Engine.CreateContract(env.Ctx, engine.ContractCreateOptions{
		CustomerID: cust.ID, Name: "Draft", TotalContentUnits: units("4"), StartDate: "2025-01-01", EndDate: "2025-06-30",
	})
	if err != nil || draft.Status != domain.ContractDraft {
		t.Fatalf("draft contract: %v %s", err, draft.Status)
	}
	if _, err := env.Engine.ActiveContracts(env.Ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unknown customer err = %v", err)
	}

	active := env.contract(t, cust.ID, "2")
	p, err := env.Engine.PreflightCommission(env.Ctx, cust.ID, "", units("1.5"))
	if err != nil {
		t.Fatal(err)
	}
	if p.Selected == nil || p.Selected.Contract.ID != active.ID || !p.Affordable {
		t.Fatalf("preflight = %+v", p)
	}
	p, err = env.Engine.PreflightCommission(env.Ctx, cust.ID, "", units("2.01"))
	if err != nil || p.Affordable {
		t.Fatalf("over-budget preflight = %+v, %v", p, err)
	}

	env.contract(t, cust.ID, "2")
	sel, err := env.Engine.ActiveContracts(env.Ctx, cust.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(sel.Options) != 2 || sel.Selected != nil {
		t.Fatalf("selection = %+v", sel)
	}
}

func TestAmountsBeyondBoundAreRejected(t *testing.T) {
	env := newTestEnv(t)
	cust := env.customer(t, "Acme")
	contract := env.contract(t, cust.ID, "10")
	idea := env.idea(t, cust.ID, "Huge")

	_, err := env.Engine.Commission(env.Ctx, engine.CommissionOptions{
		IdeaID: idea.ID, ContentType: "article", ContractID: contract.ID, ContentUnits: units("100000000000000000"),
	})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("err = %v, want invalid input", err)
	}
	got, _ := env.Engine.GetContract(env.Ctx, contract.ID)
	if !got.Contract.UsedContentUnits.IsZero() || !got.Balance.Remaining.Equal(units("10")) {
		t.Fatalf("balance changed: %+v", got.Balance)
	}
	stored, _ := env.Engine.GetIdea(env.Ctx, idea.ID)
	if stored.Status != domain.IdeaSubmitted {
		t.Fatalf("idea status = %s, want submitted", stored.Status)
	}

	base := engine.ContractCreateOptions{CustomerID: cust.ID, Name: "Big", StartDate: "2025-01-01", EndDate: "2025-12-31"}
	huge := base
	huge.TotalContentUnits = units("100000000000000000")
	hugeRollover := base
	hugeRollover.TotalContentUnits = units("1")
	hugeRollover.RolloverUnits = units("1000000000000.5")
	fineFee := base
	fineFee.TotalContentUnits = units("1")
	fee := units("1500.005")
	fineFee.MonthlyFee = &fee
	for name, opts := range map[string]engine.ContractCreateOptions{"total": huge, "rollover": hugeRollover, "fee": fineFee} {
		if _, err := env.Engine.CreateContract(env.Ctx, opts); !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("%s: err = %v, want invalid input", name, err)
		}
	}
	okFee := units("1500.25")
	valid := base
	valid.TotalContentUnits = units("1000000000000")
	valid.MonthlyFee = &okFee
	c, err := env.Engine.CreateContract(env.Ctx, valid)
	if err != nil {
		t.Fatalf("contract at the bound: %v", err)
	}
	if !c.MonthlyFee.Equal(okFee) {
		t.Fatalf("fee = %s", c.MonthlyFee)
	}
}

func TestCommissionKeepsIdeaCustomer(t *testing.T) {
	env := newTestEnv(t)
	acme := env.customer(t, "Acme")
	other := env.customer(t, "Other")
	otherContract := env.contract(t, other.ID, "10")
	idea := env.idea(t, acme.ID, "Acme only")

	for name, opts := range map[string]engine.CommissionOptions{
		"other contract": {IdeaID: idea.ID, ContentType: "article", ContractID: otherContract.ID, ContentUnits: units("4")},
		"other customer": {IdeaID: idea.ID, ContentType: "article", CustomerID: other.ID},
	} {
		if _, err := env.Engine.Commission(env.Ctx, opts); !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("%s: err = %v, want invalid input", name, err)
		}
	}
	got, _ := env.Engine.GetContract(env.Ctx, otherContract.ID)
	if !got.Contract.UsedContentUnits.IsZero() {
		t.Fatalf("other customer's contract charged %s", got.Contract.UsedContentUnits)
	}
	stored, _ := env.Engine.GetIdea(env.Ctx, idea.ID)
	if stored.Status != domain.IdeaSubmitted {
		t.Fatalf("idea status = %s, want submitted", stored.Status)
	}

	obj, err := env.Engine.Commission(env.Ctx, engine.CommissionOptions{IdeaID: idea.ID, ContentType: "article"})
	if err != nil {
		t.Fatalf("commission without contract: %v", err)
	}
	if obj.CustomerID == nil || *obj.CustomerID != acme.ID {
		t.Fatalf("content customer = %v, want %s", obj.CustomerID, acme.ID)
	}

	unowned := env.idea(t, "", "Anyone")
	obj, err = env.Engine.Commission(env.Ctx, engine.CommissionOptions{
		IdeaID: unowned.ID, ContentType: "thread", ContractID: otherContract.ID, ContentUnits: units("1"),
	})
	if err != nil {
		t.Fatalf("commission of unowned idea: %v", err)
	}
	if obj.CustomerID == nil || *obj.CustomerID != other.ID {
		t.Fatalf("unowned idea should take the contract's customer, got %v", obj.CustomerID)
	}
}

func TestInsufficientBalanceReportsCurrentRemaining(t *testing.T) {
	env := newTestEnv(t)
	cust := env.customer(t, "Acme")
	contract := env.contract(t, cust.ID, "2")
	first := env.idea(t, cust.ID, "First")
	second := env.idea(t, cust.ID, "Second")

	if _, err := env.Engine.Commission(env.Ctx, engine.CommissionOptions{
		IdeaID: first.ID, ContentType: "article", ContractID: contract.ID, ContentUnits: units("1.5"),
	}); err != nil {
		t.Fatal(err)
	}
	_, err := env.Engine.Commission(env.Ctx, engine.CommissionOptions{
		IdeaID: second.ID, ContentType: "article", ContractID: contract.ID, ContentUnits: units("1"),
	})
	if !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Fatalf("err = %v, want insufficient balance", err)
	}
	if !strings.Contains(err.Error(), "0.5 units remaining") {
		t.Fatalf("message does not report the current balance: %v", err)
	}
}
