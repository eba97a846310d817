package mongodb

import (
	"context"
	"fmt"

	"ridepool/internal/models"
	"ridepool/internal/repositories/interfaces"
	"ridepool/internal/utils"
	"ridepool/pkg/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type userRepository struct {
	db         *database.MongoDB
	collection *mongo.Collection
	locks      *mongo.Collection
	cache      CacheService
	clock      utils.Clock
}

func NewUserRepository(db *database.MongoDB, cache CacheService, clock utils.Clock) interfaces.UserRepository {
	return &userRepository{
		db:         db,
		collection: db.Collection("users"),
		locks:      db.Collection("registration_locks"),
		cache:      cache,
		clock:      clock,
	}
}

// identityFilter matches rows colliding with the given email or phone.
// Empty values are skipped so a phone-less lookup never matches everything.
func identityFilter(email, phone string) bson.M {
	or := []bson.M{}
	if email != "" {
		or = append(or, bson.M{"email": email})
	}
	if phone != "" {
		or = append(or, bson.M{"phone_number": phone})
	}
	return bson.M{"$or": or}
}

// identityLockKeys are the _id values of the per-identity lock rows.
func identityLockKeys(email, phone string) []string {
	keys := []string{}
	if email != "" {
		keys = append(keys, "email:"+email)
	}
	if phone != "" {
		keys = append(keys, "phone:"+phone)
	}
	return keys
}

// lockIdentity upserts one lock row per identity value. Two transactions
// writing the same row raise a write conflict; the driver aborts and
// retries the loser, which then observes the winner's pending row.
func (r *userRepository) lockIdentity(ctx context.Context, email, phone string) error {
	opts := options.Replace().SetUpsert(true)
	for _, key := range identityLockKeys(email, phone) {
		doc := bson.M{"_id": key, "touched_at": r.clock.Now()}
		if _, err := r.locks.ReplaceOne(ctx, bson.M{"_id": key}, doc, opts); err != nil {
			return fmt.Errorf("failed to lock identity: %w", err)
		}
	}
	return nil
}

// Registration lifecycle

func (r *userRepository) ReclaimExpired(ctx context.Context, email, phone string) (int64, error) {
	return r.reclaimExpired(ctx, email, phone)
}

func (r *userRepository) reclaimExpired(ctx context.Context, email, phone string) (int64, error) {
	cutoff := r.clock.Now().Add(-models.RegistrationGraceWindow)

	// Every pending row past its grace window is reclaimable, whoever it
	// belongs to. Pending rows colliding with the caller's identity are
	// reclaimable too, except the most recent one, which still owns the
	// grace window.
	clauses := []bson.M{
		{"registration_pending": true, "created_at": bson.M{"$lt": cutoff}},
	}

	if email != "" || phone != "" {
		identity := identityFilter(email, phone)
		identity["registration_pending"] = true

		opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})
		var newest models.UserAccount
		err := r.collection.FindOne(ctx, identity, opts).Decode(&newest)
		switch {
		case err == mongo.ErrNoDocuments:
			// nothing pending for this identity
		case err != nil:
			return 0, fmt.Errorf("failed to find newest pending row: %w", err)
		default:
			stale := identityFilter(email, phone)
			stale["registration_pending"] = true
			stale["_id"] = bson.M{"$ne": newest.ID}
			clauses = append(clauses, stale)
		}
	}

	result, err := r.collection.DeleteMany(ctx, bson.M{"$or": clauses})
	if err != nil {
		return 0, fmt.Errorf("failed to reclaim pending rows: %w", err)
	}

	return result.DeletedCount, nil
}

func (r *userRepository) FindBlockingPending(ctx context.Context, email, phone string) (*models.UserAccount, error) {
	return r.findBlockingPending(ctx, email, phone)
}

func (r *userRepository) findBlockingPending(ctx context.Context, email, phone string) (*models.UserAccount, error) {
	cutoff := r.clock.Now().Add(-models.RegistrationGraceWindow)

	filter := identityFilter(email, phone)
	filter["registration_pending"] = true
	filter["created_at"] = bson.M{"$gte": cutoff}

	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})

	var user models.UserAccount
	err := r.collection.FindOne(ctx, filter, opts).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find blocking pending row: %w", err)
	}

	return &user, nil
}

func (r *userRepository) InsertPending(ctx context.Context, user *models.UserAccount) error {
	_, err := r.db.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		// Serialize concurrent registrations of the same identity. Plain
		// disjoint inserts never conflict under snapshot isolation, so
		// without this both racers could commit a pending row.
		if err := r.lockIdentity(sessCtx, user.Email, user.PhoneNumber); err != nil {
			return nil, err
		}

		if _, err := r.reclaimExpired(sessCtx, user.Email, user.PhoneNumber); err != nil {
			return nil, err
		}

		// Confirmed rows block forever.
		confirmed := identityFilter(user.Email, user.PhoneNumber)
		confirmed["registration_pending"] = false
		err := r.collection.FindOne(sessCtx, confirmed).Err()
		switch {
		case err == nil:
			return nil, models.ErrDuplicateActive
		case err != mongo.ErrNoDocuments:
			return nil, fmt.Errorf("failed to check confirmed rows: %w", err)
		}

		// An unexpired pending row blocks until its grace window lapses.
		blocking, err := r.findBlockingPending(sessCtx, user.Email, user.PhoneNumber)
		if err == nil {
			pending := models.OTPPurposeEmail
			if blocking.EmailVerified {
				pending = models.OTPPurposePhone
			}
			return nil, &models.RegistrationInFlightError{
				Remaining:           blocking.RemainingGrace(r.clock.Now()),
				PendingVerification: pending,
			}
		}
		if err != models.ErrNotFound {
			return nil, err
		}

		user.ID = primitive.NewObjectID()
		user.RegistrationPending = true
		user.IsActive = false
		user.CreatedAt = r.clock.Now()
		user.UpdatedAt = user.CreatedAt

		if _, err := r.collection.InsertOne(sessCtx, user); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return nil, models.ErrStoreConflict
			}
			return nil, fmt.Errorf("failed to insert pending user: %w", err)
		}

		return nil, nil
	})
	return err
}

func (r *userRepository) Confirm(ctx context.Context, id primitive.ObjectID, purpose models.OTPPurpose, required []models.OTPPurpose) (*models.UserAccount, error) {
	result, err := r.db.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		field := ""
		switch purpose {
		case models.OTPPurposeEmail:
			field = "email_verified"
		case models.OTPPurposePhone:
			field = "phone_verified"
		default:
			return nil, fmt.Errorf("purpose %q does not confirm a registration", purpose)
		}

		now := r.clock.Now()
		opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

		var user models.UserAccount
		err := r.collection.FindOneAndUpdate(
			sessCtx,
			bson.M{"_id": id},
			bson.M{"$set": bson.M{field: true, "updated_at": now}},
			opts,
		).Decode(&user)
		if err != nil {
			if err == mongo.ErrNoDocuments {
				return nil, models.ErrNotFound
			}
			return nil, fmt.Errorf("failed to record verification: %w", err)
		}

		verified := map[models.OTPPurpose]bool{
			models.OTPPurposeEmail: user.EmailVerified,
			models.OTPPurposePhone: user.PhoneVerified,
		}
		for _, p := range required {
			if !verified[p] {
				return &user, nil
			}
		}

		// Every required channel is verified: flip pending to confirmed.
		// The partial unique indexes only see confirmed rows, so a commit
		// colliding with a concurrent confirmation surfaces here.
		err = r.collection.FindOneAndUpdate(
			sessCtx,
			bson.M{"_id": id, "registration_pending": true},
			bson.M{"$set": bson.M{"registration_pending": false, "is_active": true, "updated_at": now}},
			opts,
		).Decode(&user)
		if err != nil {
			if err == mongo.ErrNoDocuments {
				// already confirmed; reload as-is
				return r.getByID(sessCtx, id)
			}
			if mongo.IsDuplicateKeyError(err) {
				return nil, models.ErrStoreConflict
			}
			return nil, fmt.Errorf("failed to confirm registration: %w", err)
		}

		return &user, nil
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, models.ErrStoreConflict
		}
		return nil, err
	}

	user := result.(*models.UserAccount)
	r.invalidateUserCache(ctx, user)
	r.cacheUser(ctx, user)

	return user, nil
}

// Basic CRUD operations

func (r *userRepository) getByID(ctx context.Context, id primitive.ObjectID) (*models.UserAccount, error) {
	var user models.UserAccount
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (r *userRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.UserAccount, error) {
	if user := r.getUserFromCache(ctx, fmt.Sprintf("user:%s", id.Hex())); user != nil {
		return user, nil
	}

	user, err := r.getByID(ctx, id)
	if err != nil {
		return nil, err
	}

	r.cacheUser(ctx, user)
	return user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.UserAccount, error) {
	if user := r.getUserFromCache(ctx, fmt.Sprintf("user_email:%s", email)); user != nil {
		return user, nil
	}

	// Pending rows are invisible to auth lookups.
	var user models.UserAccount
	err := r.collection.FindOne(ctx, bson.M{"email": email, "registration_pending": false}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	r.cacheUser(ctx, &user)
	return &user, nil
}

func (r *userRepository) GetByPhone(ctx context.Context, phone string) (*models.UserAccount, error) {
	if user := r.getUserFromCache(ctx, fmt.Sprintf("user_phone:%s", phone)); user != nil {
		return user, nil
	}

	var user models.UserAccount
	err := r.collection.FindOne(ctx, bson.M{"phone_number": phone, "registration_pending": false}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by phone: %w", err)
	}

	r.cacheUser(ctx, &user)
	return &user, nil
}

func (r *userRepository) Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error {
	updates["updated_at"] = r.clock.Now()

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": updates})
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if result.MatchedCount == 0 {
		return models.ErrNotFound
	}

	if user, err := r.getByID(ctx, id); err == nil {
		r.invalidateUserCache(ctx, user)
	}

	return nil
}

func (r *userRepository) List(ctx context.Context, params *utils.PaginationParams) ([]*models.UserAccount, int64, error) {
	filter := bson.M{"registration_pending": false}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	cursor, err := r.collection.Find(ctx, filter, params.GetSortOptions())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	defer cursor.Close(ctx)

	var users []*models.UserAccount
	if err := cursor.All(ctx, &users); err != nil {
		return nil, 0, fmt.Errorf("failed to decode users: %w", err)
	}

	return users, total, nil
}

// Rating bookkeeping

func ratingField(role models.UserRole) string {
	if role == models.RoleDriver {
		return "rating_as_driver"
	}
	return "rating_as_passenger"
}

func completedRidesField(role models.UserRole) string {
	if role == models.RoleDriver {
		return "completed_rides_as_driver"
	}
	return "completed_rides_as_passenger"
}

func (r *userRepository) CompareAndSetRating(ctx context.Context, id primitive.ObjectID, role models.UserRole, old, new float64) (bool, error) {
	field := ratingField(role)

	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id, field: old},
		bson.M{"$set": bson.M{field: new, "updated_at": r.clock.Now()}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to update rating: %w", err)
	}

	// Drop the cached row either way so a losing caller re-reads the
	// current value instead of the stale one.
	r.invalidateUserCacheByID(ctx, id)

	return result.MatchedCount > 0, nil
}

func (r *userRepository) IncrementCompletedRides(ctx context.Context, id primitive.ObjectID, role models.UserRole) error {
	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{
			"$inc": bson.M{completedRidesField(role): 1},
			"$set": bson.M{"updated_at": r.clock.Now()},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to increment completed rides: %w", err)
	}
	if result.MatchedCount == 0 {
		return models.ErrNotFound
	}

	r.invalidateUserCacheByID(ctx, id)
	return nil
}

// Cache helpers

func (r *userRepository) cacheUser(ctx context.Context, user *models.UserAccount) {
	if r.cache == nil || user.RegistrationPending {
		return
	}
	r.cache.Set(ctx, fmt.Sprintf("user:%s", user.ID.Hex()), user, userCacheTTL)
	if user.Email != "" {
		r.cache.Set(ctx, fmt.Sprintf("user_email:%s", user.Email), user, userCacheTTL)
	}
	if user.PhoneNumber != "" {
		r.cache.Set(ctx, fmt.Sprintf("user_phone:%s", user.PhoneNumber), user, userCacheTTL)
	}
}

func (r *userRepository) getUserFromCache(ctx context.Context, key string) *models.UserAccount {
	if r.cache == nil {
		return nil
	}
	var user models.UserAccount
	if err := r.cache.Get(ctx, key, &user); err != nil {
		return nil
	}
	return &user
}

func (r *userRepository) invalidateUserCache(ctx context.Context, user *models.UserAccount) {
	if r.cache == nil {
		return
	}
	r.cache.Delete(ctx,
		fmt.Sprintf("user:%s", user.ID.Hex()),
		fmt.Sprintf("user_email:%s", user.Email),
		fmt.Sprintf("user_phone:%s", user.PhoneNumber),
	)
}

func (r *userRepository) invalidateUserCacheByID(ctx context.Context, id primitive.ObjectID) {
	if user, err := r.getByID(ctx, id); err == nil {
		r.invalidateUserCache(ctx, user)
	}
}
