package database

const schema = `
CREATE TABLE IF NOT EXISTS users (
    user_id BIGINT PRIMARY KEY,
    username VARCHAR(255),
    free_uses INT NOT NULL DEFAULT 0,
    plan VARCHAR(32) NOT NULL DEFAULT 'free',
    expiry VARCHAR(64),
    last_payment_id VARCHAR(128),
    last_payment_date TIMESTAMP NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    last_active TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS payments (
    id BIGINT AUTO_INCREMENT PRIMARY KEY,
    user_id BIGINT NOT NULL,
    plan_id VARCHAR(64),
    order_id VARCHAR(128) NOT NULL,
    payment_id VARCHAR(128),
    currency VARCHAR(8) NOT NULL,
    amount INT NOT NULL,
    status VARCHAR(16) NOT NULL,
    raw_payload TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
    KEY idx_payments_order (order_id)
);

CREATE TABLE IF NOT EXISTS applied_orders (
    order_id VARCHAR(128) PRIMARY KEY,
    user_id BIGINT NOT NULL,
    plan_id VARCHAR(64) NOT NULL,
    payment_id VARCHAR(128),
    applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS audit_logs (
    id BIGINT AUTO_INCREMENT PRIMARY KEY,
    type VARCHAR(32) NOT NULL,
    users_reset INT NOT NULL DEFAULT 0,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`
