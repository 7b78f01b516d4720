package main

import (
	"crypto/rand"
	"fmt"
	"sync"

	"github.com/quorumsig/musig/internal/test"
	"github.com/quorumsig/musig/pkg/math/curve"
	"github.com/quorumsig/musig/pkg/party"
	"github.com/quorumsig/musig/pkg/protocol"
	"github.com/quorumsig/musig/protocols/musig"
	"golang.org/x/crypto/sha3"
)

// Sign runs the aggregate signing protocol for one party, delivering its
// messages over the test network.
func Sign(config *musig.Config, signers party.IDSlice, message []byte, n *test.Network) error {
	h, err := protocol.NewMultiHandler(musig.Sign(config, signers, message), nil)
	if err != nil {
		return err
	}
	test.HandlerLoop(config.ID, h, n)

	result, err := h.Result()
	if err != nil {
		return err
	}
	signature := result.(*musig.Signature)

	aggregatedKey, err := config.AggregatedKey()
	if err != nil {
		return err
	}
	if err = signature.Verify(aggregatedKey, message, true); err != nil {
		return err
	}
	fmt.Printf("party %s: aggregate signature verified\n", config.ID)
	return nil
}

// All runs a full n-of-n signing session with every party in its own
// goroutine.
func All(group curve.Curve, ids party.IDSlice, message []byte) error {
	net := test.NewNetwork(ids)
	configs := musig.GenerateConfigs(group, ids, rand.Reader)

	var wg sync.WaitGroup
	errs := make(chan error, len(ids))
	for _, id := range ids {
		wg.Add(1)
		go func(id party.ID) {
			defer wg.Done()
			if err := Sign(configs[id], ids, message, net); err != nil {
				errs <- fmt.Errorf("party %s: %w", id, err)
			}
		}(id)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		return err
	}
	return nil
}

func main() {
	group := curve.Secp256k1{}

	// sign the hash of the message, not the message itself
	message := make([]byte, 32)
	sha3.ShakeSum128(message, []byte("hello"))

	// a two-party session, then a five-party one
	for _, count := range []int{2, 5} {
		if err := All(group, test.PartyIDs(count), message); err != nil {
			fmt.Println(err)
			return
		}
	}
}
