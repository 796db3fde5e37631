package services

import (
	"context"
	"testing"

	"github.com/iyunix/go-gemchat/internal/domain"
	chatservice "github.com/iyunix/go-gemchat/internal/services/chat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserServiceSyncIsIdempotent(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	first, err := f.userSvc.Sync(ctx, alice)
	require.NoError(t, err)

	renamed := alice
	renamed.Name = "Alice Liddell"
	renamed.Picture = "https://example.com/alice.png"
	second, err := f.userSvc.Sync(ctx, renamed)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Alice Liddell", second.Name)
	require.NotNil(t, second.PictureURL)
	assert.Equal(t, "https://example.com/alice.png", *second.PictureURL)
}

func TestUserServiceMe(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.userSvc.Me(ctx, alice)
	assert.Equal(t, chatservice.KindNotFound, chatservice.KindOf(err))

	_, err = f.userSvc.Me(ctx, domain.Principal{})
	assert.Equal(t, chatservice.KindUnauthorized, chatservice.KindOf(err))

	_, err = f.userSvc.Sync(ctx, alice)
	require.NoError(t, err)
	me, err := f.userSvc.Me(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, alice.Email, me.Email)
}

func TestUserServiceUpdateProfile(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	_, err := f.userSvc.Sync(ctx, alice)
	require.NoError(t, err)

	name := "  Al  "
	updated, err := f.userSvc.UpdateProfile(ctx, alice, &name, nil)
	require.NoError(t, err)
	assert.Equal(t, "Al", updated.Name)
	assert.Nil(t, updated.PictureURL)

	picture := "https://cdn.example.com/al.jpg"
	updated, err = f.userSvc.UpdateProfile(ctx, alice, nil, &picture)
	require.NoError(t, err)
	assert.Equal(t, "Al", updated.Name)
	require.NotNil(t, updated.PictureURL)
	assert.Equal(t, picture, *updated.PictureURL)

	blank := " "
	_, err = f.userSvc.UpdateProfile(ctx, alice, &blank, nil)
	assert.Equal(t, chatservice.KindValidation, chatservice.KindOf(err))

	bad := "javascript:alert(1)"
	_, err = f.userSvc.UpdateProfile(ctx, alice, nil, &bad)
	assert.Equal(t, chatservice.KindValidation, chatservice.KindOf(err))

	_, err = f.userSvc.UpdateProfile(ctx, bob, &name, nil)
	assert.Equal(t, chatservice.KindNotFound, chatservice.KindOf(err))
}
