package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gagliardetto/solana-go"
	"go.etcd.io/bbolt"

	"airdrop-distributor/pkg/distributor"
)

var (
	distributorsBucket = []byte("distributors")
	receiptsBucket     = []byte("receipts")
)

// BoltStore keeps Borsh-encoded distributor records and JSON receipts in a
// single bbolt file. Every write is its own transaction.
type BoltStore struct {
	db *bbolt.DB
}

// NewBoltStore opens (or creates) the database at dbPath
func NewBoltStore(dbPath string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{distributorsBucket, receiptsBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) CreateDistributor(address solana.PublicKey, account distributor.Account) error {
	data, err := distributor.EncodeAccount(account)
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(distributorsBucket)
		if b.Get(address.Bytes()) != nil {
			return fmt.Errorf("%w: %s", ErrDistributorExists, address)
		}
		return b.Put(address.Bytes(), data)
	})
}

func (s *BoltStore) GetDistributor(address solana.PublicKey) (distributor.Account, error) {
	var data []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(distributorsBucket).Get(address.Bytes())
		if v == nil {
			return fmt.Errorf("%w: %s", ErrDistributorNotFound, address)
		}
		data = make([]byte, len(v))
		copy(data, v)
		return nil
	})
	if err != nil {
		return distributor.Account{}, err
	}
	return distributor.DecodeAccount(data)
}

func (s *BoltStore) SaveDistributor(address solana.PublicKey, account distributor.Account) error {
	data, err := distributor.EncodeAccount(account)
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(distributorsBucket)
		if b.Get(address.Bytes()) == nil {
			return fmt.Errorf("%w: %s", ErrDistributorNotFound, address)
		}
		return b.Put(address.Bytes(), data)
	})
}

func (s *BoltStore) ListDistributors() ([]solana.PublicKey, error) {
	var out []solana.PublicKey
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(distributorsBucket).ForEach(func(k, _ []byte) error {
			out = append(out, solana.PublicKeyFromBytes(k))
			return nil
		})
	})
	return out, err
}

func (s *BoltStore) SaveReceipt(address solana.PublicKey, receipt distributor.Receipt) error {
	data, err := json.Marshal(receipt)
	if err != nil {
		return fmt.Errorf("failed to encode receipt: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(receiptsBucket).Put(receiptKey(address, receipt.Event.Index), data)
	})
}

func (s *BoltStore) GetReceipt(address solana.PublicKey, index uint64) (distributor.Receipt, error) {
	var receipt distributor.Receipt
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(receiptsBucket).Get(receiptKey(address, index))
		if v == nil {
			return fmt.Errorf("%w: %s/%d", ErrReceiptNotFound, address, index)
		}
		return json.Unmarshal(v, &receipt)
	})
	return receipt, err
}
