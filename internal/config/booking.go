package config

import "time"

// BookingConfig carries the tariff and pool constants used by the
// booking core.  Amounts are in cents.  DefaultBasePriceCents is charged
// per head when a catalog item has no price of its own.
type BookingConfig struct {
    AudioGuideFeeCents    int64         // per head, audio-guide add-on
    GuideFeeCents         int64         // flat, guide add-on
    DefaultBasePriceCents int64         // fallback per-head price
    MinChargeLevel        int           // units at or below this charge are never allocated
    RentalWindow          time.Duration // return_date = rent_date + RentalWindow
    StoreTimeout          time.Duration // bound for one orchestrator call's storage work
}

// LoadBookingConfig reads BOOKING_* variables with documented defaults.
func LoadBookingConfig() BookingConfig {
    cfg := BookingConfig{
        AudioGuideFeeCents:    int64(envInt("BOOKING_AUDIO_GUIDE_FEE_CENTS", 2000)),
        GuideFeeCents:         int64(envInt("BOOKING_GUIDE_FEE_CENTS", 5000)),
        DefaultBasePriceCents: int64(envInt("BOOKING_DEFAULT_BASE_PRICE_CENTS", 5000)),
        MinChargeLevel:        envInt("BOOKING_MIN_CHARGE_LEVEL", 20),
        RentalWindow:          envDur("BOOKING_RENTAL_WINDOW", 24*time.Hour),
        StoreTimeout:          envDur("STORE_TIMEOUT", 5*time.Second),
    }
    if cfg.AudioGuideFeeCents < 0 { cfg.AudioGuideFeeCents = 0 }
    if cfg.GuideFeeCents < 0 { cfg.GuideFeeCents = 0 }
    if cfg.DefaultBasePriceCents < 0 { cfg.DefaultBasePriceCents = 0 }
    if cfg.MinChargeLevel < 0 || cfg.MinChargeLevel > 100 { cfg.MinChargeLevel = 20 }
    if cfg.RentalWindow <= 0 { cfg.RentalWindow = 24 * time.Hour }
    if cfg.StoreTimeout <= 0 { cfg.StoreTimeout = 5 * time.Second }
    return cfg
}
