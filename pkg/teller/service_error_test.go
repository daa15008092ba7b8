package teller

import (
	"context"
	"errors"
	"testing"
)

const errorMismatchMessage = "expected %v, got %v"

var errStoreFailure = errors.New("store error")

func TestOperationsReturnLoadErrors(test *testing.T) {
	test.Parallel()
	testCases := []struct {
		name    string
		operate func(test *testing.T, service *Service) error
	}{
		{
			name: "create account",
			operate: func(test *testing.T, service *Service) error {
				_, err := service.CreateAccount(context.Background(), mustPIN(test, "1234"), AccountTypeSavings, 0)
				return err
			},
		},
		{
			name: "deposit",
			operate: func(test *testing.T, service *Service) error {
				_, err := service.Deposit(context.Background(), mustAccountID(test, "4321"), mustPositiveAmount(test, 100))
				return err
			},
		},
		{
			name: "withdraw",
			operate: func(test *testing.T, service *Service) error {
				_, err := service.Withdraw(context.Background(), mustAccountID(test, "4321"), mustPositiveAmount(test, 100))
				return err
			},
		},
		{
			name: "transfer",
			operate: func(test *testing.T, service *Service) error {
				_, err := service.Transfer(context.Background(), mustAccountID(test, "4321"), mustAccountID(test, "1111"), mustPositiveAmount(test, 100))
				return err
			},
		},
		{
			name: "change pin",
			operate: func(test *testing.T, service *Service) error {
				return service.ChangePIN(context.Background(), mustAccountID(test, "4321"), mustPIN(test, "1234"), mustPIN(test, "5678"))
			},
		},
		{
			name: "statement",
			operate: func(test *testing.T, service *Service) error {
				_, err := service.Statement(context.Background(), mustAccountID(test, "4321"), 0)
				return err
			},
		},
		{
			name: "summary report",
			operate: func(test *testing.T, service *Service) error {
				_, err := service.SummaryReport(context.Background())
				return err
			},
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			test.Parallel()
			store := newStubStore(test)
			store.loadError = errStoreFailure
			service := mustNewService(test, store, &stubHasher{})
			if err := testCase.operate(test, service); !errors.Is(err, errStoreFailure) {
				test.Fatalf(errorMismatchMessage, errStoreFailure, err)
			}
		})
	}
}

func TestOperationsReturnSaveErrors(test *testing.T) {
	test.Parallel()
	testCases := []struct {
		name    string
		operate func(test *testing.T, service *Service) error
	}{
		{
			name: "create account",
			operate: func(test *testing.T, service *Service) error {
				_, err := service.CreateAccount(context.Background(), mustPIN(test, "1234"), AccountTypeSavings, 0)
				return err
			},
		},
		{
			name: "deposit",
			operate: func(test *testing.T, service *Service) error {
				_, err := service.Deposit(context.Background(), mustAccountID(test, "4321"), mustPositiveAmount(test, 100))
				return err
			},
		},
		{
			name: "withdraw",
			operate: func(test *testing.T, service *Service) error {
				_, err := service.Withdraw(context.Background(), mustAccountID(test, "4321"), mustPositiveAmount(test, 100))
				return err
			},
		},
		{
			name: "transfer",
			operate: func(test *testing.T, service *Service) error {
				_, err := service.Transfer(context.Background(), mustAccountID(test, "4321"), mustAccountID(test, "1111"), mustPositiveAmount(test, 100))
				return err
			},
		},
		{
			name: "change pin",
			operate: func(test *testing.T, service *Service) error {
				return service.ChangePIN(context.Background(), mustAccountID(test, "4321"), mustPIN(test, "1234"), mustPIN(test, "5678"))
			},
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			test.Parallel()
			store := newStubStore(test,
				savingsAccount("4321", "1234", 10000),
				savingsAccount("1111", "5678", 10000),
			)
			store.saveError = errStoreFailure
			service := mustNewService(test, store, &stubHasher{})
			if err := testCase.operate(test, service); !errors.Is(err, errStoreFailure) {
				test.Fatalf(errorMismatchMessage, errStoreFailure, err)
			}
		})
	}
}

func TestAuthenticateReturnsStoreErrors(test *testing.T) {
	test.Parallel()
	test.Run("load error", func(test *testing.T) {
		test.Parallel()
		store := newStubStore(test)
		store.loadError = errStoreFailure
		manager := mustNewAuthManager(test, store, &stubHasher{})
		_, err := manager.Authenticate(context.Background(), mustAccountID(test, "4321"), mustPIN(test, "1234"))
		if !errors.Is(err, errStoreFailure) {
			test.Fatalf(errorMismatchMessage, errStoreFailure, err)
		}
	})
	test.Run("save error", func(test *testing.T) {
		test.Parallel()
		store := newStubStore(test, savingsAccount("4321", "1234", 100))
		store.saveError = errStoreFailure
		manager := mustNewAuthManager(test, store, &stubHasher{})
		_, err := manager.Authenticate(context.Background(), mustAccountID(test, "4321"), mustPIN(test, "1234"))
		if !errors.Is(err, errStoreFailure) {
			test.Fatalf(errorMismatchMessage, errStoreFailure, err)
		}
	})
}

func TestNewServiceValidatesConfig(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	clock := func() int64 { return 0 }
	if _, err := NewService(nil, &stubHasher{}, clock); !errors.Is(err, ErrInvalidServiceConfig) {
		test.Fatalf("expected ErrInvalidServiceConfig for nil store, got %v", err)
	}
	if _, err := NewService(store, nil, clock); !errors.Is(err, ErrInvalidServiceConfig) {
		test.Fatalf("expected ErrInvalidServiceConfig for nil hasher, got %v", err)
	}
	if _, err := NewService(store, &stubHasher{}, nil); !errors.Is(err, ErrInvalidServiceConfig) {
		test.Fatalf("expected ErrInvalidServiceConfig for nil clock, got %v", err)
	}
}

func TestCreateAccountPropagatesHashError(test *testing.T) {
	test.Parallel()
	hashFailure := errors.New("hash failure")
	store := newStubStore(test)
	service := mustNewService(test, store, &stubHasher{hashError: hashFailure})

	_, err := service.CreateAccount(context.Background(), mustPIN(test, "1234"), AccountTypeSavings, 0)
	if !errors.Is(err, hashFailure) {
		test.Fatalf(errorMismatchMessage, hashFailure, err)
	}
}
