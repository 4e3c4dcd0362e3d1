// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package coinselect

import (
	"context"

	"github.com/dexkit/coinstore/elements"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// Leg names used by the contract bundles.
const (
	LegFee                              = "fee input"
	LegFillerToken                      = "filler token"
	LegCollateral                       = "collateral asset"
	LegSettlement                       = "settlement asset"
	LegFillerReissuanceToken            = "filler reissuance token"
	LegGrantorCollateralToken           = "grantor collateral token"
	LegGrantorCollateralReissuanceToken = "grantor collateral reissuance token"
	LegGrantorSettlementToken           = "grantor settlement token"
	LegGrantorSettlementReissuanceToken = "grantor settlement reissuance token"
)

// TokenEntropies are the issuance entropies of the tokens of a contract
// instance.
type TokenEntropies struct {
	Filler            elements.Entropy
	GrantorCollateral elements.Entropy
	GrantorSettlement elements.Entropy
}

// Instance holds the public parameters of a contract instance needed to
// locate its inputs.
type Instance struct {
	// ContractScript locks the outputs held by the contract.
	ContractScript []byte

	// MakerScript and TakerScript lock the outputs of the two parties.
	MakerScript []byte
	TakerScript []byte

	// Tokens are the entropies the contract tokens were issued with.
	Tokens TokenEntropies

	// BlindedIssuance records whether the token issuances were blinded,
	// which selects the reissuance token ids.
	BlindedIssuance bool

	// CollateralAsset and SettlementAsset are the two assets the contract
	// exchanges.
	CollateralAsset elements.AssetID
	SettlementAsset elements.AssetID

	// Amounts optionally sets the minimum value of a leg, keyed by leg
	// name. Legs without an entry accept any output.
	Amounts map[string]uint64
}

// FillerToken returns the asset id of the filler token.
func (i *Instance) FillerToken() elements.AssetID {
	return elements.AssetIDFromEntropy(i.Tokens.Filler)
}

// GrantorCollateralToken returns the asset id of the grantor collateral
// token.
func (i *Instance) GrantorCollateralToken() elements.AssetID {
	return elements.AssetIDFromEntropy(i.Tokens.GrantorCollateral)
}

// GrantorSettlementToken returns the asset id of the grantor settlement
// token.
func (i *Instance) GrantorSettlementToken() elements.AssetID {
	return elements.AssetIDFromEntropy(i.Tokens.GrantorSettlement)
}

func (i *Instance) reissuanceToken(entropy elements.Entropy) elements.AssetID {
	return elements.ReissuanceTokenFromEntropy(entropy, i.BlindedIssuance)
}

func (i *Instance) leg(name string, asset elements.AssetID,
	script []byte) Leg {

	return Leg{
		Name:         name,
		Asset:        asset,
		ScriptPubKey: script,
		Amount:       i.Amounts[name],
	}
}

// SettlementFilter selects the asset a settlement pays out.
type SettlementFilter struct {
	// PriceAboveStrike is set when the price settled above the strike, in
	// which case the settlement asset is paid out instead of the
	// collateral.
	PriceAboveStrike bool
}

// payoutLeg returns the contract held leg a settlement spends.
func (i *Instance) payoutLeg(f SettlementFilter) Leg {
	if f.PriceAboveStrike {
		return i.leg(LegSettlement, i.SettlementAsset, i.ContractScript)
	}

	return i.leg(LegCollateral, i.CollateralAsset, i.ContractScript)
}

// Bundle is the set of inputs selected for one transaction.
type Bundle struct {
	// Operation names the transaction, such as "maker fund".
	Operation string

	// Legs holds one result per input, in selection order.
	Legs []LegResult
}

// Require returns a MissingInputError for the first leg that was not
// funded, or nil when every leg has an input.
func (b *Bundle) Require() error {
	for _, leg := range b.Legs {
		if leg.Input.IsSome() {
			continue
		}

		return &MissingInputError{
			Operation: b.Operation,
			Leg:       leg.Leg.Name,
			Asset:     leg.Leg.Asset,
			Kind:      leg.Kind,
			Required:  leg.Leg.Amount,
			Available: leg.Available,
		}
	}

	return nil
}

// Inputs returns the selected inputs in leg order, skipping unfunded legs.
func (b *Bundle) Inputs() []Input {
	var inputs []Input
	for _, leg := range b.Legs {
		leg.Input.WhenSome(func(in Input) {
			inputs = append(inputs, in)
		})
	}

	return inputs
}

func (b *Bundle) input(i int) fn.Option[Input] {
	return b.Legs[i].Input
}

func (s *Session) selectBundle(ctx context.Context, operation string,
	legs ...Leg) (*Bundle, error) {

	results, err := s.Select(ctx, legs...)
	if err != nil {
		return nil, err
	}

	return &Bundle{Operation: operation, Legs: results}, nil
}

// TakerFundInputs are the inputs of the taker funding transaction: the
// filler tokens held by the contract and the taker's collateral.
type TakerFundInputs struct {
	*Bundle
	FillerToken fn.Option[Input]
	Collateral  fn.Option[Input]
}

// TakerFund selects the inputs of the taker funding transaction.
func (s *Session) TakerFund(ctx context.Context,
	inst *Instance) (*TakerFundInputs, error) {

	b, err := s.selectBundle(ctx, "taker fund",
		inst.leg(LegFillerToken, inst.FillerToken(), inst.ContractScript),
		inst.leg(LegCollateral, inst.CollateralAsset, inst.TakerScript),
	)
	if err != nil {
		return nil, err
	}

	return &TakerFundInputs{
		Bundle:      b,
		FillerToken: b.input(0),
		Collateral:  b.input(1),
	}, nil
}

// TakerTerminationEarlyInputs are the inputs of an early exit by the taker:
// the taker's filler tokens and the collateral they redeem.
type TakerTerminationEarlyInputs struct {
	*Bundle
	FillerToken fn.Option[Input]
	Collateral  fn.Option[Input]
}

// TakerTerminationEarly selects the inputs of an early taker exit.
func (s *Session) TakerTerminationEarly(ctx context.Context,
	inst *Instance) (*TakerTerminationEarlyInputs, error) {

	b, err := s.selectBundle(ctx, "taker early termination",
		inst.leg(LegFillerToken, inst.FillerToken(), inst.TakerScript),
		inst.leg(LegCollateral, inst.CollateralAsset, inst.ContractScript),
	)
	if err != nil {
		return nil, err
	}

	return &TakerTerminationEarlyInputs{
		Bundle:      b,
		FillerToken: b.input(0),
		Collateral:  b.input(1),
	}, nil
}

// TakerSettlementInputs are the inputs of the taker settlement: the taker's
// filler tokens and the asset paid out by the contract.
type TakerSettlementInputs struct {
	*Bundle
	FillerToken fn.Option[Input]
	Payout      fn.Option[Input]
}

// TakerSettlement selects the inputs of the taker settlement.
func (s *Session) TakerSettlement(ctx context.Context, inst *Instance,
	f SettlementFilter) (*TakerSettlementInputs, error) {

	b, err := s.selectBundle(ctx, "taker settlement",
		inst.leg(LegFillerToken, inst.FillerToken(), inst.TakerScript),
		inst.payoutLeg(f),
	)
	if err != nil {
		return nil, err
	}

	return &TakerSettlementInputs{
		Bundle:      b,
		FillerToken: b.input(0),
		Payout:      b.input(1),
	}, nil
}

// MakerFundInputs are the inputs of the maker funding transaction: the three
// reissuance tokens and the maker's settlement asset.
type MakerFundInputs struct {
	*Bundle
	FillerReissuanceToken            fn.Option[Input]
	GrantorCollateralReissuanceToken fn.Option[Input]
	GrantorSettlementReissuanceToken fn.Option[Input]
	Settlement                       fn.Option[Input]
}

// MakerFund selects the inputs of the maker funding transaction.
func (s *Session) MakerFund(ctx context.Context,
	inst *Instance) (*MakerFundInputs, error) {

	b, err := s.selectBundle(ctx, "maker fund",
		inst.leg(LegFillerReissuanceToken,
			inst.reissuanceToken(inst.Tokens.Filler), inst.MakerScript),
		inst.leg(LegGrantorCollateralReissuanceToken,
			inst.reissuanceToken(inst.Tokens.GrantorCollateral),
			inst.MakerScript),
		inst.leg(LegGrantorSettlementReissuanceToken,
			inst.reissuanceToken(inst.Tokens.GrantorSettlement),
			inst.MakerScript),
		inst.leg(LegSettlement, inst.SettlementAsset, inst.MakerScript),
	)
	if err != nil {
		return nil, err
	}

	return &MakerFundInputs{
		Bundle:                           b,
		FillerReissuanceToken:            b.input(0),
		GrantorCollateralReissuanceToken: b.input(1),
		GrantorSettlementReissuanceToken: b.input(2),
		Settlement:                       b.input(3),
	}, nil
}

// MakerTerminationCollateralInputs are the inputs of a maker exit through
// the collateral side: the contract's collateral and the maker's grantor
// collateral token.
type MakerTerminationCollateralInputs struct {
	*Bundle
	Collateral             fn.Option[Input]
	GrantorCollateralToken fn.Option[Input]
}

// MakerTerminationCollateral selects the inputs of a maker exit through the
// collateral side.
func (s *Session) MakerTerminationCollateral(ctx context.Context,
	inst *Instance) (*MakerTerminationCollateralInputs, error) {

	b, err := s.selectBundle(ctx, "maker collateral termination",
		inst.leg(LegCollateral, inst.CollateralAsset, inst.ContractScript),
		inst.leg(LegGrantorCollateralToken, inst.GrantorCollateralToken(),
			inst.MakerScript),
	)
	if err != nil {
		return nil, err
	}

	return &MakerTerminationCollateralInputs{
		Bundle:                 b,
		Collateral:             b.input(0),
		GrantorCollateralToken: b.input(1),
	}, nil
}

// MakerTerminationSettlementInputs are the inputs of a maker exit through
// the settlement side: the contract's settlement asset and the maker's
// grantor settlement token.
type MakerTerminationSettlementInputs struct {
	*Bundle
	Settlement             fn.Option[Input]
	GrantorSettlementToken fn.Option[Input]
}

// MakerTerminationSettlement selects the inputs of a maker exit through the
// settlement side.
func (s *Session) MakerTerminationSettlement(ctx context.Context,
	inst *Instance) (*MakerTerminationSettlementInputs, error) {

	b, err := s.selectBundle(ctx, "maker settlement termination",
		inst.leg(LegSettlement, inst.SettlementAsset, inst.ContractScript),
		inst.leg(LegGrantorSettlementToken, inst.GrantorSettlementToken(),
			inst.MakerScript),
	)
	if err != nil {
		return nil, err
	}

	return &MakerTerminationSettlementInputs{
		Bundle:                 b,
		Settlement:             b.input(0),
		GrantorSettlementToken: b.input(1),
	}, nil
}

// MakerSettlementInputs are the inputs of the maker settlement: the asset
// paid out by the contract and both grantor tokens.
type MakerSettlementInputs struct {
	*Bundle
	Payout                 fn.Option[Input]
	GrantorCollateralToken fn.Option[Input]
	GrantorSettlementToken fn.Option[Input]
}

// MakerSettlement selects the inputs of the maker settlement.
func (s *Session) MakerSettlement(ctx context.Context, inst *Instance,
	f SettlementFilter) (*MakerSettlementInputs, error) {

	b, err := s.selectBundle(ctx, "maker settlement",
		inst.payoutLeg(f),
		inst.leg(LegGrantorCollateralToken, inst.GrantorCollateralToken(),
			inst.MakerScript),
		inst.leg(LegGrantorSettlementToken, inst.GrantorSettlementToken(),
			inst.MakerScript),
	)
	if err != nil {
		return nil, err
	}

	return &MakerSettlementInputs{
		Bundle:                 b,
		Payout:                 b.input(0),
		GrantorCollateralToken: b.input(1),
		GrantorSettlementToken: b.input(2),
	}, nil
}
