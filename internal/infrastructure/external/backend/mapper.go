package backend

import (
	"fmt"

	"github.com/travy/admin-hub/internal/domain/directory"
	"github.com/travy/admin-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAPPER - DTO to domain record transformations
// ══════════════════════════════════════════════════════════════════════════════

// invalidPayload marks a response that decoded as JSON but cannot form a store.
func invalidPayload(op string, err error) error {
	return shared.WrapError("backend", op, shared.ErrExternalService, "invalid payload", err)
}

// UserFromDTO converts a UserDTO to a domain user.
func UserFromDTO(dto UserDTO) (*directory.User, error) {
	return directory.NewUser(directory.UserParams{
		ID:         string(dto.ID),
		Name:       dto.Name,
		Email:      dto.Email,
		Status:     directory.UserStatus(dto.Status),
		CreatedAt:  dto.CreatedAt.Ptr(),
		SignUpDate: dto.SignUpDate.Ptr(),
		Reward:     dto.Reward,
	})
}

// InfluencerFromDTO converts an InfluencerDTO to a domain influencer.
func InfluencerFromDTO(dto InfluencerDTO) (*directory.Influencer, error) {
	return directory.NewInfluencer(directory.InfluencerParams{
		ID:            string(dto.ID),
		Name:          dto.Name,
		Email:         dto.Email,
		ReferralCount: int(dto.ReferralCount),
		TotalEarnings: dto.TotalEarnings,
		ReferralLink:  dto.ReferralLink,
		CreatedAt:     dto.CreatedAt.Ptr(),
		JoinDate:      dto.JoinDate.Ptr(),
	})
}

// UsersFromDTO maps a whole payload. Any invalid item or duplicate id rejects
// the payload.
func UsersFromDTO(dtos []UserDTO) ([]*directory.User, error) {
	return mapStore(dtos, UserFromDTO, "MapUsers")
}

// InfluencersFromDTO maps a whole payload with the same rules as UsersFromDTO.
func InfluencersFromDTO(dtos []InfluencerDTO) ([]*directory.Influencer, error) {
	return mapStore(dtos, InfluencerFromDTO, "MapInfluencers")
}

func mapStore[D any, R directory.Record](dtos []D, convert func(D) (R, error), op string) ([]R, error) {
	out := make([]R, 0, len(dtos))
	for i, dto := range dtos {
		r, err := convert(dto)
		if err != nil {
			return nil, invalidPayload(op, fmt.Errorf("item %d: %w", i, err))
		}
		out = append(out, r)
	}
	if err := directory.CheckUnique(out); err != nil {
		return nil, invalidPayload(op, err)
	}
	return out, nil
}

// ProfileFromDTO converts the influencer's own profile. Missing fields stay zero.
func ProfileFromDTO(dto InfluencerDTO) directory.Profile {
	return directory.Profile{
		ID:            string(dto.ID),
		Name:          dto.Name,
		Email:         dto.Email,
		ReferralLink:  dto.ReferralLink,
		ReferralCount: int(dto.ReferralCount),
		TotalEarnings: dto.TotalEarnings,
	}
}
