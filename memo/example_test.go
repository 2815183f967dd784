package memo_test

import (
	"errors"
	"fmt"

	"github.com/jonwraymond/weakmemo/memo"
)

type Report struct {
	Tenant string
	Period string
	Rows   []string
}

func ExampleRegistry_Register() {
	reports := memo.New[*Report](memo.WithName("reports"))

	build := func(tenant, period string) func() *Report {
		return func() *Report {
			fmt.Println("building", tenant, period)
			return &Report{Tenant: tenant, Period: period}
		}
	}

	a, _ := reports.Register([]any{"acme", "2024-Q1"}, build("acme", "2024-Q1"))
	b, _ := reports.Register([]any{"acme", "2024-Q1"}, build("acme", "2024-Q1"))
	c, _ := reports.Register([]any{"acme", "2024-Q2"}, build("acme", "2024-Q2"))

	fmt.Println(a == b, a == c)
	// Output:
	// building acme 2024-Q1
	// building acme 2024-Q2
	// true false
}

func ExampleRegistry_Unregister() {
	labels := memo.New[string]()
	n := 0
	next := func() string {
		n++
		return fmt.Sprintf("label-%d", n)
	}

	first, _ := labels.Register([]any{"user", 42}, next)
	_ = labels.Unregister([]any{"user", 42})
	second, _ := labels.Register([]any{"user", 42}, next)

	fmt.Println(first, second)
	fmt.Printf("%+v\n", labels.Stats())
	// Output:
	// label-1 label-2
	// {Nodes:2 Entries:1 Live:1}
}

func ExampleValidateKeys() {
	fmt.Println(errors.Is(memo.ValidateKeys(nil), memo.ErrInvalidKey))
	fmt.Println(errors.Is(memo.ValidateKeys([]any{[]int{1}}), memo.ErrUncomparableKey))
	fmt.Println(memo.ValidateKeys([]any{"tenant", 7, nil}))
	// Output:
	// true
	// true
	// <nil>
}
